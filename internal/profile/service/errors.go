package service

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("not found")

// ErrUserNotFound is returned when a profile is written for a user that no
// longer exists. It matches ErrNotFound.
var ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

// FieldError describes one rejected request field.
type FieldError struct {
	Msg      string `json:"msg"`
	Param    string `json:"param,omitempty"`
	Location string `json:"location,omitempty"`
}

type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Param+": "+fe.Msg)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// fieldErrors accumulates body field errors.
type fieldErrors []FieldError

func (f *fieldErrors) add(param, msg string) {
	*f = append(*f, FieldError{Msg: msg, Param: param, Location: "body"})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Errors: f}
}
