package model

import "errors"

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrMalformedMessage = errors.New("malformed message")
	ErrAPIFailure       = errors.New("chat api failure")
	ErrConfigInvalid    = errors.New("invalid config")
)
