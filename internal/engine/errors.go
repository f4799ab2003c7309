package engine

import (
	"errors"
	"fmt"
)

// Load-time errors. They surface wrapped in a rules.FeatureError.
var (
	ErrUnknownRegistry = errors.New("unknown decision maker registry")
	ErrUnknownStrategy = errors.New("unknown strategy kind")
	ErrInvalidParams   = errors.New("invalid strategy parameters")
)

// Evaluation errors. They surface wrapped in an *EvalError.
var (
	// ErrInvalidIdentifier means the identifier is present but cannot be hashed,
	// for example an empty string. An absent identifier is not an error.
	ErrInvalidIdentifier = errors.New("invalid identifier value")

	// ErrMalformedContext means a context value has a type or format the
	// strategy cannot interpret.
	ErrMalformedContext = errors.New("malformed context")
)

// EvalError reports a strategy that could not evaluate the supplied context.
type EvalError struct {
	Feature       string
	DecisionMaker string
	Identifier    string
	Err           error
}

func (e *EvalError) Error() string {
	if e.Identifier == "" {
		return fmt.Sprintf("evaluate %q with %s: %v", e.Feature, e.DecisionMaker, e.Err)
	}
	return fmt.Sprintf("evaluate %q with %s on %s: %v", e.Feature, e.DecisionMaker, e.Identifier, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }
