package apperrors

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNoSession      = errors.New("no practice session in progress")
	ErrUnknownAction  = errors.New("unknown sync action")
	ErrCorruptPayload = errors.New("corrupt stored payload")
)
