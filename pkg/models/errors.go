package models

import "errors"

var (
	ErrFieldNotWritable = errors.New("field is not writable")
	ErrInvalidParams    = errors.New("invalid action params")
)
