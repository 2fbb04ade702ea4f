package model

import (
	"fmt"
	"strings"
)

// Policy selects the move geometry a game is played under.
type Policy string

const (
	// PolicySimplified is plain end-point geometry, identical to IsValidMove.
	PolicySimplified Policy = "simplified"
	// PolicyStrict also requires the path of sliding pieces to be clear and
	// rejects moves that stay on the same square.
	PolicyStrict Policy = "strict"
)

// ParsePolicy reads a policy name, case-insensitively; empty means simplified.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicySimplified:
		return PolicySimplified, nil
	case PolicyStrict:
		return PolicyStrict, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownPolicy)
}

// IsValidMove is IsValidMove under p. Like the core check it does not reject
// a non-pawn landing on its own side's piece.
func (p Policy) IsValidMove(board Board, from, to Position, mover PlayerColor) bool {
	if p != PolicyStrict {
		return IsValidMove(board, from, to, mover)
	}
	if from == to || !IsValidMove(board, from, to, mover) {
		return false
	}
	switch board[from.Y][from.X].Type {
	case Rook, Bishop, Queen, King:
		return pathClear(board, from, to)
	}
	return true
}

// PossibleMoves is GetPossibleMoves under p.
func (p Policy) PossibleMoves(board Board, position Position, mover PlayerColor) []Position {
	return collectMoves(board, position, mover, p.IsValidMove)
}

// CheckMove is CheckMove under p.
func (p Policy) CheckMove(board Board, from, to Position, mover PlayerColor) error {
	return checkMove(board, from, to, mover, p.PossibleMoves)
}

// pathClear reports whether every square strictly between from and to is
// empty. from and to must share a rank, file or diagonal.
func pathClear(board Board, from, to Position) bool {
	stepX, stepY := sign(to.X-from.X), sign(to.Y-from.Y)
	for x, y := from.X+stepX, from.Y+stepY; x != to.X || y != to.Y; x, y = x+stepX, y+stepY {
		if board[y][x] != nil {
			return false
		}
	}
	return true
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
