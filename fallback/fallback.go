// Package fallback runs an ordered list of alternative resolution methods until
// one succeeds. Methods are tried strictly sequentially; the first success wins
// and the remaining methods are never invoked. Individual failures are captured
// rather than propagated, so a broken third-party service only costs its place
// in the chain.
package fallback

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/mo"
)

// A Method is one resolution strategy in a chain.
type Method[T any] struct {
	Name string
	Run  func(context.Context) (T, error)
}

// New is a shortcut for constructing a Method.
func New[T any](name string, run func(context.Context) (T, error)) Method[T] {
	return Method[T]{Name: name, Run: run}
}

// An Outcome records what a single method produced, success or failure.
type Outcome[T any] struct {
	Method string
	Result mo.Result[T]
}

// First tries each method in order and returns the value of the first one that
// succeeds, along with the outcome trail of every method that ran. On
// exhaustion, the error aggregates each method's failure. Context cancellation
// stops the chain between methods.
func First[T any](ctx context.Context, methods []Method[T]) (T, []Outcome[T], error) {
	var zero T
	outcomes := make([]Outcome[T], 0, len(methods))
	var failures error
	for _, method := range methods {
		if err := ctx.Err(); err != nil {
			return zero, outcomes, err
		}
		value, err := method.Run(ctx)
		outcomes = append(outcomes, Outcome[T]{
			Method: method.Name,
			Result: mo.TupleToResult(value, err),
		})
		if err == nil {
			return value, outcomes, nil
		}
		failures = multierror.Append(failures, multierror.Prefix(err, fmt.Sprintf("[%v]", method.Name)))
	}
	if failures == nil {
		failures = fmt.Errorf("no methods to try")
	}
	return zero, outcomes, failures
}
