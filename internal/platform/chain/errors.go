package chain

import "errors"

var (
	ErrUnknownContract = errors.New("unknown contract")
	ErrUnknownMethod   = errors.New("unknown contract method")
	ErrUnknownEvent    = errors.New("log does not match a known event")
	ErrNoSigner        = errors.New("no signing key configured")
)
