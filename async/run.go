package async

import "github.com/samber/mo"

// Run will run a function in a goroutine, returning its result via a channel.
func Run[T any](f func() T) <-chan T {
	c := make(chan T)
	go func() {
		c <- f()
	}()
	return c
}

// RunResult is like Run for functions returning (T, error), wrapping the return
// value as a single mo.Result.
func RunResult[T any](f func() (T, error)) <-chan mo.Result[T] {
	c := make(chan mo.Result[T])
	go func() {
		c <- mo.TupleToResult(f())
	}()
	return c
}
