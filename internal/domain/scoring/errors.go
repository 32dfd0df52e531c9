package scoring

import "errors"

// Sentinel kinds for mode parsing and catalog validation. Calculate never
// returns these; they come from ParseMode, Validate and Engine.Score.
var (
	ErrUnknownMode        = errors.New("unknown game mode")
	ErrCardNotInDeck      = errors.New("number card not in deck")
	ErrTooManyCopies      = errors.New("too many copies of card")
	ErrModifierNotInDeck  = errors.New("modifier card not in deck")
	ErrToggleUnavailable  = errors.New("toggle not available in mode")
	ErrDuplicateModifiers = errors.New("modifier card selected twice")
)
