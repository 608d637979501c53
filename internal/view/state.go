// Package view projects repository results into screen-ready state.
//
// Every read flow with both a network and a cache path goes through
// [RefreshThenFallback]; every entity-to-display conversion goes through
// [Mapper]. [Projector] wires the two together for each screen and runs the
// work on a bounded worker pool.
package view

import "fmt"

// Phase is the stage of a projected operation.
type Phase int

const (
	PhaseLoading Phase = iota + 1
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is one emission of a projected operation: Loading, Success with
// data, or Error with a user-facing message.
type State[T any] struct {
	Phase   Phase
	Data    T
	Message string
}

// Loading returns the in-flight state.
func Loading[T any]() State[T] {
	return State[T]{Phase: PhaseLoading}
}

// Success returns a state carrying v.
func Success[T any](v T) State[T] {
	return State[T]{Phase: PhaseSuccess, Data: v}
}

// Failure returns an error state carrying msg.
func Failure[T any](msg string) State[T] {
	return State[T]{Phase: PhaseError, Message: msg}
}

// Terminal reports whether no further state follows for a one-shot
// operation.
func (s State[T]) Terminal() bool {
	return s.Phase == PhaseSuccess || s.Phase == PhaseError
}

func (s State[T]) String() string {
	switch s.Phase {
	case PhaseLoading:
		return "Loading"
	case PhaseSuccess:
		return fmt.Sprintf("Success(%v)", s.Data)
	case PhaseError:
		return fmt.Sprintf("Error(%s)", s.Message)
	default:
		return s.Phase.String()
	}
}
