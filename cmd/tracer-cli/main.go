package main

import (
	"state-tracer/cmd/tracer-cli/cmd"
)

func main() {
	cmd.Execute()
}
