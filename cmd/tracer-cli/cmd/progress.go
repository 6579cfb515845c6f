package cmd

import (
	pb "gopkg.in/cheggaaa/pb.v1"

	"state-tracer/internal/tracer"
)

// progressBar 把 ProgressEvent 流渲染成终端进度条，每个阶段一条
func progressBar() tracer.ProgressFunc {
	bars := make(map[string]*pb.ProgressBar)

	return func(e tracer.ProgressEvent) {
		bar, ok := bars[e.Stage]
		if !ok {
			bar = pb.New64(int64(e.Total)).Prefix(e.Stage + " ")
			bar.ShowTimeLeft = false
			bar.Start()
			bars[e.Stage] = bar
		}

		bar.Set64(int64(e.Current))
		if e.Current >= e.Total {
			bar.Finish()
		}
	}
}
