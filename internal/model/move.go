package model

type WSMove struct {
	From Position `json:"from"`
	To   Position `json:"to"`
}

// Ply is the record of the last applied move.
type Ply struct {
	Piece         Piece       `json:"piece"`
	Mover         PlayerColor `json:"mover"`
	From          Position    `json:"from"`
	To            Position    `json:"to"`
	CapturedPiece *Piece      `json:"capturedPiece"`
}
