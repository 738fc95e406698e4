package service

import "errors"

var (
	ErrNotInRoom    = errors.New("connection is not in that room")
	ErrBadFrame     = errors.New("frame could not be decoded")
	ErrUnknownEvent = errors.New("unknown event type")
)
