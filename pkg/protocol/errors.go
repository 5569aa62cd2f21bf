package protocol

import "errors"

var (
	// ErrShortHeader is returned when a buffer cannot hold a full header.
	ErrShortHeader = errors.New("short header")
	// ErrShortAck is returned when a buffer cannot hold an ack.
	ErrShortAck = errors.New("short ack")
)
