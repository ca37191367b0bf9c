package worker_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"hackohio/quizd/pkg/worker"
)

func TestCandidates_OrderAndCopy(t *testing.T) {
	names := []string{"python", " ", "py"}
	c := worker.NewCandidates(names...)
	names[0] = "mutated"

	assert.Equal(t, []string{"python", "py"}, slices.Collect(c.All()))
	assert.Equal(t, 2, c.Len())

	got := c.Names()
	got[0] = "x"
	assert.Equal(t, []string{"python", "py"}, c.Names())
}

func TestCandidates_IndependentCursors(t *testing.T) {
	c := worker.NewCandidates("a", "b", "c")
	for n := range c.All() {
		if n == "b" {
			break
		}
	}
	assert.Equal(t, []string{"a", "b", "c"}, slices.Collect(c.All()))
}
