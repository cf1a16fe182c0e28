package wallet

import "errors"

var (
	// Session errors
	ErrNotConnected = errors.New("wallet is not connected")
	ErrWrongNetwork = errors.New("wallet is connected to the wrong network")
	ErrNotOwner     = errors.New("connected wallet is not the contract owner")

	// Address validation errors
	ErrMissingAddress  = errors.New("wallet address is required")
	ErrInvalidAddress  = errors.New("invalid EVM address format (must be 0x followed by 40 hex characters)")
	ErrInvalidChecksum = errors.New("invalid EVM address checksum")
)
