package battle

import "errors"

var (
	// ErrDecode is returned when a ledger record lacks a required field
	ErrDecode = errors.New("cannot decode ledger record")

	// ErrBattleNotFound is returned when the battle manager has no record for an id
	ErrBattleNotFound = errors.New("battle not found")
)
