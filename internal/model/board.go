package model

import (
	"strings"
)

type PieceType string

const (
	King   PieceType = "king"
	Queen  PieceType = "queen"
	Rook   PieceType = "rook"
	Bishop PieceType = "bishop"
	Knight PieceType = "knight"
	Pawn   PieceType = "pawn"
)

// Piece is a value; boards hold pointers to pieces but never write through them.
type Piece struct {
	Type  PieceType   `json:"type"`
	Color PlayerColor `json:"color"`
}

// Symbol returns the unicode glyph for the piece.
func (p Piece) Symbol() string {
	white := p.Color == PlayerColorWhite
	switch p.Type {
	case King:
		return pick(white, "♔", "♚")
	case Queen:
		return pick(white, "♕", "♛")
	case Rook:
		return pick(white, "♖", "♜")
	case Bishop:
		return pick(white, "♗", "♝")
	case Knight:
		return pick(white, "♘", "♞")
	case Pawn:
		return pick(white, "♙", "♟")
	}
	return "?"
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InBounds reports whether p addresses a square of the 8x8 grid.
func (p Position) InBounds() bool {
	return p.X >= 0 && p.X < 8 && p.Y >= 0 && p.Y < 8
}

// Board is indexed [y][x]. Row 0 is black's back rank; white moves toward row 0.
// Assigning a Board copies the grid, which is how moves produce new boards.
type Board [8][8]*Piece

var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewBoard returns the standard starting position.
func NewBoard() Board {
	var board Board
	for x := 0; x < 8; x++ {
		board[0][x] = &Piece{Type: backRank[x], Color: PlayerColorBlack}
		board[1][x] = &Piece{Type: Pawn, Color: PlayerColorBlack}
		board[6][x] = &Piece{Type: Pawn, Color: PlayerColorWhite}
		board[7][x] = &Piece{Type: backRank[x], Color: PlayerColorWhite}
	}
	return board
}

// At returns the piece on p. ok is false for empty and out-of-range squares.
func (b Board) At(p Position) (piece Piece, ok bool) {
	if !p.InBounds() || b[p.Y][p.X] == nil {
		return Piece{}, false
	}
	return *b[p.Y][p.X], true
}

func (b Board) String() string {
	var sb strings.Builder
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if x > 0 {
				sb.WriteByte(' ')
			}
			if b[y][x] == nil {
				sb.WriteByte('.')
				continue
			}
			sb.WriteString(b[y][x].Symbol())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
