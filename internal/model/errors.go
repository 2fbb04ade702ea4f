package model

import "errors"

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrEmptySquare       = errors.New("no piece at from square")
	ErrNotYourPiece      = errors.New("piece belongs to the opponent")
	ErrIllegalMove       = errors.New("invalid move, not legal")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrNotInGame         = errors.New("player not in game")
	ErrGameFull          = errors.New("game is full")
	ErrAlreadyQueued     = errors.New("player already in queue")
	ErrUnknownPolicy     = errors.New("unknown rules policy")
)
