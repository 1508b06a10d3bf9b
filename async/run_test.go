package async

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	assert := assert.New(t)
	c := Run(func() int { return 42 })
	assert.Equal(42, <-c)
}

func TestRunResult(t *testing.T) {
	assert := assert.New(t)

	ok := <-RunResult(func() (string, error) { return "done", nil })
	assert.True(ok.IsOk())
	assert.Equal("done", ok.MustGet())

	failed := <-RunResult(func() (string, error) { return "", errors.New("boom") })
	assert.True(failed.IsError())
	assert.EqualError(failed.Error(), "boom")
}
