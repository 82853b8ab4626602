package search

import (
	"errors"
	"fmt"
)

var (
	// ErrNoStrategy is returned when no grammar matches the search text. It
	// wraps the parse error that got furthest into the text.
	ErrNoStrategy = errors.New("no search strategy applies")
	// ErrTypeMismatch is returned when a literal cannot be compared with a column.
	ErrTypeMismatch = errors.New("type mismatch")
)

// UnknownDomainError names a domain token that is not registered.
type UnknownDomainError struct {
	Domain string
}

func (e *UnknownDomainError) Error() string {
	return fmt.Sprintf("unknown search domain %q", e.Domain)
}

// AttributeError reports an identifier segment that does not resolve on an entity.
type AttributeError struct {
	Entity string
	Attr   string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s has no attribute %q", e.Entity, e.Attr)
}

// StrategyError records an evaluation failure of one strategy.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// IsInputError reports whether err stems from the search text rather than
// from the session.
func IsInputError(err error) bool {
	var se *StrategyError
	return errors.Is(err, ErrNoStrategy) || errors.As(err, &se)
}
