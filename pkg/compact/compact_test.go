package compact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intEq(a, b int) bool { return a == b }

func TestDedupe(t *testing.T) {
	tests := []struct {
		name  string
		items []int
		want  []int
	}{
		{"Adjacent runs collapse", []int{1, 1, 2, 2, 3}, []int{1, 2, 3}},
		{"Non-adjacent repeat survives", []int{10, 10, 10, 20, 20, 10}, []int{10, 20, 10}},
		{"No duplicates", []int{1, 2, 3}, []int{1, 2, 3}},
		{"All equal", []int{7, 7, 7, 7}, []int{7}},
		{"Single element", []int{5}, []int{5}},
		{"Empty", []int{}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dedupe(tt.items, intEq)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDedupe_FirstAlwaysSurvives(t *testing.T) {
	got := Dedupe([]int{9, 9, 9}, intEq)
	assert.Equal(t, []int{9}, got)
}

func TestDedupe_StructPredicate(t *testing.T) {
	type row struct{ ID int }

	items := []row{{ID: 1}, {ID: 1}, {ID: 2}}
	got := Dedupe(items, func(a, b row) bool { return a.ID == b.ID })
	assert.Equal(t, []row{{ID: 1}, {ID: 2}}, got)
}

func TestDedupe_ReturnsIndependentCopy(t *testing.T) {
	items := []int{1, 2}
	got := Dedupe(items, intEq)

	got[0] = 99
	assert.Equal(t, []int{1, 2}, items)
}
