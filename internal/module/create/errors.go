package create

import "errors"

var (
	ErrThemeRequired     = errors.New("battle theme is required")
	ErrInvalidSchedule   = errors.New("invalid schedule: submission start <= submission end <= voting end")
	ErrInvalidMinStake   = errors.New("invalid min stake: must be zero or positive")
	ErrInvalidMaxPerUser = errors.New("invalid max submissions per user: must be zero or positive")
	ErrMissingBattleID   = errors.New("unable to determine battle ID from transaction logs")
)
