package models

import "errors"

// ErrNotFound marks lookups of unknown jobs or messages. Callers translate
// it to a 404, never to a zero-filled payload.
var ErrNotFound = errors.New("not found")

// ErrValidation marks malformed input rejected synchronously, before any
// query runs or any job is created.
var ErrValidation = errors.New("validation error")
