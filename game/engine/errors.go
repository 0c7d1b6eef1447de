package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAlreadyConsumed   = errors.New("already consumed")
	ErrGameAlreadyOver   = errors.New("game already over")
	ErrInvalidArgument   = errors.New("invalid argument")

	ErrUnknownPlayer = fmt.Errorf("%w: player is not part of this session", ErrUnauthorized)
	ErrNotYourTurn   = fmt.Errorf("%w: not your turn", ErrUnauthorized)
)

func transitionError(op string, status Status) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, status)
}
