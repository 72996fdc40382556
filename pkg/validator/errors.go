package validator

import (
	"errors"
	"fmt"

	"github.com/wavebound/storyline/pkg/domain"
)

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// Violations returns the graph violations carried by err, if any.
func Violations(err error) []*domain.ValidationError {
	var aggr *AggregateError
	if !errors.As(err, &aggr) {
		var single *domain.ValidationError
		if errors.As(err, &single) {
			return []*domain.ValidationError{single}
		}
		return nil
	}
	out := make([]*domain.ValidationError, 0, len(aggr.Errors))
	for _, e := range aggr.Errors {
		var v *domain.ValidationError
		if errors.As(e, &v) {
			out = append(out, v)
		}
	}
	return out
}
