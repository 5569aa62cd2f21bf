package client

import "github.com/pkg/errors"

var (
	// ErrNoEndpoint is returned by NewClient when no endpoint was configured.
	ErrNoEndpoint = errors.New("no endpoint configured")
	// ErrNoResponse is returned in one-shot mode when no reply arrived in time.
	ErrNoResponse = errors.New("no response from server")
)
