package batch

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrJobTerminal   = errors.New("job already terminal")
	ErrJobProcessing = errors.New("job is processing")
)
