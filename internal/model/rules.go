package model

import (
	"fmt"
)

// IsValidMove reports whether the piece on from may move to to for mover.
//
// Only end-point geometry is checked for rooks, bishops, queens and kings:
// intervening squares are not inspected. Landing on a friendly piece is NOT
// rejected here for non-pawns; GetPossibleMoves filters those out. Callers
// that use IsValidMove on its own must do that check themselves, or go
// through CheckMove.
//
// The king rule accepts the null move (from == to).
//
// Out-of-range squares are never valid.
func IsValidMove(board Board, from, to Position, mover PlayerColor) bool {
	if !from.InBounds() || !to.InBounds() {
		return false
	}
	piece := board[from.Y][from.X]
	if piece == nil || piece.Color != mover {
		return false
	}

	dx := abs(to.X - from.X)
	dy := abs(to.Y - from.Y)

	switch piece.Type {
	case Pawn:
		return isValidPawnMove(board, piece, from, to)
	case Knight:
		return (dx == 2 && dy == 1) || (dx == 1 && dy == 2)
	case Bishop:
		return dx == dy
	case Rook:
		return dx == 0 || dy == 0
	case Queen:
		return dx == dy || dx == 0 || dy == 0
	case King:
		return dx <= 1 && dy <= 1
	default:
		return false
	}
}

func isValidPawnMove(board Board, piece *Piece, from, to Position) bool {
	direction, startRow := 1, 1
	if piece.Color == PlayerColorWhite {
		direction, startRow = -1, 6
	}
	target := board[to.Y][to.X]

	// single push
	if to.X == from.X && to.Y == from.Y+direction && target == nil {
		return true
	}
	// double push from the start row
	if from.Y == startRow && to.X == from.X && to.Y == from.Y+2*direction &&
		target == nil && board[from.Y+direction][from.X] == nil {
		return true
	}
	// capture
	if abs(to.X-from.X) == 1 && to.Y == from.Y+direction &&
		target != nil && target.Color != piece.Color {
		return true
	}
	return false
}

// GetPossibleMoves lists every destination from position for mover in
// row-major order (y, then x). A destination must pass IsValidMove and be
// empty or held by the opponent. The result is empty, never nil, when
// position is empty, off the board, or not the mover's piece.
func GetPossibleMoves(board Board, position Position, mover PlayerColor) []Position {
	return collectMoves(board, position, mover, IsValidMove)
}

func collectMoves(board Board, position Position, mover PlayerColor, valid func(Board, Position, Position, PlayerColor) bool) []Position {
	moves := []Position{}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			candidate := Position{X: x, Y: y}
			if !valid(board, position, candidate, mover) {
				continue
			}
			target := board[y][x]
			if target == nil || target.Color != mover {
				moves = append(moves, candidate)
			}
		}
	}
	return moves
}

// ApplyMove returns a copy of board with the piece on from relocated to to,
// along with whatever piece previously stood on to. Legality is not checked;
// the input board is left untouched.
func ApplyMove(board Board, from, to Position) (Board, *Piece, error) {
	if !from.InBounds() {
		return board, nil, fmt.Errorf("from %v: %w", from, ErrInvalidCoordinate)
	}
	if !to.InBounds() {
		return board, nil, fmt.Errorf("to %v: %w", to, ErrInvalidCoordinate)
	}
	piece := board[from.Y][from.X]
	if piece == nil {
		return board, nil, fmt.Errorf("from %v: %w", from, ErrEmptySquare)
	}

	next := board
	captured := next[to.Y][to.X]
	next[from.Y][from.X] = nil
	next[to.Y][to.X] = piece
	if captured == nil {
		return next, nil, nil
	}
	c := *captured
	return next, &c, nil
}

// CheckMove is the error-returning form of move validation used at request
// boundaries. Unlike IsValidMove it also rejects landing on a friendly piece.
func CheckMove(board Board, from, to Position, mover PlayerColor) error {
	return checkMove(board, from, to, mover, GetPossibleMoves)
}

func checkMove(board Board, from, to Position, mover PlayerColor, possible func(Board, Position, PlayerColor) []Position) error {
	if !from.InBounds() {
		return fmt.Errorf("from %v: %w", from, ErrInvalidCoordinate)
	}
	if !to.InBounds() {
		return fmt.Errorf("to %v: %w", to, ErrInvalidCoordinate)
	}
	piece := board[from.Y][from.X]
	if piece == nil {
		return fmt.Errorf("from %v: %w", from, ErrEmptySquare)
	}
	if piece.Color != mover {
		return fmt.Errorf("%s %s on %v: %w", piece.Color, piece.Type, from, ErrNotYourPiece)
	}
	for _, m := range possible(board, from, mover) {
		if m == to {
			return nil
		}
	}
	return fmt.Errorf("%s %v -> %v: %w", piece.Type, from, to, ErrIllegalMove)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
