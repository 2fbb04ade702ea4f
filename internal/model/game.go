package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"

	"github.com/benbeisheim/minichess-backend/internal/ws"
)

// The connections for a specific game
type GameConnections struct {
	connections map[string]*websocket.Conn // playerID -> connection
	// sentPlies is the move count of the newest state written out.
	sentPlies int
	mu      sync.Mutex
}

// Game is one session: the board plus the turn, selection and capture state
// that the rules functions leave to their caller.
type Game struct {
	ID          string
	mu          sync.Mutex
	state       GameState
	policy      Policy
	connections *GameConnections
}

type GameState struct {
	Board          Board       `json:"board"`
	ToMove         PlayerColor `json:"toMove"`
	SelectedSquare *Position   `json:"selectedSquare"`
	LegalMoves     []Position  `json:"legalMoves"`
	CapturedPieces []Piece     `json:"capturedPieces"`
	LastMove       *Ply        `json:"lastMove"`
	Players        GamePlayers `json:"players"`
	Policy         Policy      `json:"policy"`
	// Plies counts the moves played so far.
	Plies int `json:"plies"`
}

type GamePlayers struct {
	White ClientPlayer `json:"white"`
	Black ClientPlayer `json:"black"`
}

func NewGame(id string, policy Policy) *Game {
	return &Game{
		ID:          id,
		state:       newGameState(policy),
		policy:      policy,
		connections: NewGameConnections(),
	}
}

func NewGameConnections() *GameConnections {
	return &GameConnections{
		connections: make(map[string]*websocket.Conn),
	}
}

func newGameState(policy Policy) GameState {
	return GameState{
		Board:          NewBoard(),
		ToMove:         PlayerColorWhite,
		LegalMoves:     make([]Position, 0),
		CapturedPieces: make([]Piece, 0),
		Policy:         policy,
	}
}

// AddPlayer seats playerID as white, or as black once white is taken.
// Joining again returns the color already held.
func (g *Game) AddPlayer(playerID string) (PlayerColor, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if color, ok := g.colorOf(playerID); ok {
		return color, nil
	}
	if g.state.Players.White.ID == "" {
		g.state.Players.White = ClientPlayer{ID: playerID, Color: PlayerColorWhite}
		return PlayerColorWhite, nil
	}
	if g.state.Players.Black.ID == "" {
		g.state.Players.Black = ClientPlayer{ID: playerID, Color: PlayerColorBlack}
		return PlayerColorBlack, nil
	}
	return "", fmt.Errorf("game %s: %w", g.ID, ErrGameFull)
}

func (g *Game) GetState() GameState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.snapshot()
}

func (g *Game) snapshot() GameState {
	state := g.state
	state.LegalMoves = slices.Clone(g.state.LegalMoves)
	state.CapturedPieces = slices.Clone(g.state.CapturedPieces)
	if g.state.SelectedSquare != nil {
		sel := *g.state.SelectedSquare
		state.SelectedSquare = &sel
	}
	if g.state.LastMove != nil {
		last := *g.state.LastMove
		state.LastMove = &last
	}
	return state
}

func (g *Game) IsPlayerInGame(playerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.colorOf(playerID)
	return ok
}

func (g *Game) colorOf(playerID string) (PlayerColor, bool) {
	if playerID == "" {
		return "", false
	}
	switch playerID {
	case g.state.Players.White.ID:
		return PlayerColorWhite, true
	case g.state.Players.Black.ID:
		return PlayerColorBlack, true
	}
	return "", false
}

func (g *Game) canSpectate() bool {
	return g.state.Players.White.ID == "" || g.state.Players.Black.ID == ""
}

// PossibleMoves lists the destinations of the piece on pos for the side to move.
func (g *Game) PossibleMoves(pos Position) ([]Position, error) {
	if !pos.InBounds() {
		return nil, fmt.Errorf("%v: %w", pos, ErrInvalidCoordinate)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.policy.PossibleMoves(g.state.Board, pos, g.state.ToMove), nil
}

// SelectSquare handles a click on pos by the side to move. With a selection
// active and pos among its legal moves the move is played. Otherwise an own
// piece on pos becomes the selection and anything else clears it.
func (g *Game) SelectSquare(playerID string, pos Position) (GameState, error) {
	if !pos.InBounds() {
		return GameState{}, fmt.Errorf("%v: %w", pos, ErrInvalidCoordinate)
	}
	g.mu.Lock()
	if err := g.checkTurn(playerID); err != nil {
		g.mu.Unlock()
		return GameState{}, err
	}

	moved := false
	if sel := g.state.SelectedSquare; sel != nil && slices.Contains(g.state.LegalMoves, pos) {
		if err := g.applyMove(*sel, pos); err != nil {
			g.mu.Unlock()
			return GameState{}, err
		}
		moved = true
	} else if piece, ok := g.state.Board.At(pos); ok && piece.Color == g.state.ToMove {
		g.state.SelectedSquare = &pos
		g.state.LegalMoves = g.policy.PossibleMoves(g.state.Board, pos, g.state.ToMove)
	} else {
		g.clearSelection()
	}
	state := g.snapshot()
	g.mu.Unlock()

	if moved {
		g.broadcastState(state)
	}
	return state, nil
}

// MakeMove validates move for playerID and plays it.
func (g *Game) MakeMove(playerID string, move WSMove) (GameState, error) {
	g.mu.Lock()
	if err := g.checkTurn(playerID); err != nil {
		g.mu.Unlock()
		return GameState{}, err
	}
	if err := g.policy.CheckMove(g.state.Board, move.From, move.To, g.state.ToMove); err != nil {
		g.mu.Unlock()
		return GameState{}, err
	}
	if err := g.applyMove(move.From, move.To); err != nil {
		g.mu.Unlock()
		return GameState{}, err
	}
	state := g.snapshot()
	g.mu.Unlock()

	g.broadcastState(state)
	return state, nil
}

func (g *Game) checkTurn(playerID string) error {
	color, ok := g.colorOf(playerID)
	if !ok {
		return fmt.Errorf("%s in game %s: %w", playerID, g.ID, ErrNotInGame)
	}
	if color != g.state.ToMove {
		return fmt.Errorf("%s to move: %w", g.state.ToMove, ErrNotYourTurn)
	}
	return nil
}

// applyMove plays an already validated move. Caller holds g.mu.
func (g *Game) applyMove(from, to Position) error {
	piece, _ := g.state.Board.At(from)
	board, captured, err := ApplyMove(g.state.Board, from, to)
	if err != nil {
		return err
	}
	g.state.Board = board
	if captured != nil {
		g.state.CapturedPieces = append(g.state.CapturedPieces, *captured)
	}
	g.state.LastMove = &Ply{
		Piece:         piece,
		Mover:         g.state.ToMove,
		From:          from,
		To:            to,
		CapturedPiece: captured,
	}
	log.Debugw("move applied", "game", g.ID, "mover", g.state.ToMove, "from", from, "to", to, "captured", captured != nil)
	g.state.ToMove = g.state.ToMove.Opponent()
	g.state.Plies++
	g.clearSelection()
	return nil
}

func (g *Game) clearSelection() {
	g.state.SelectedSquare = nil
	g.state.LegalMoves = make([]Position, 0)
}

// RegisterConnection attaches conn as the observer for playerID. Players of
// the game are always accepted; others only while a seat is open.
func (g *Game) RegisterConnection(playerID string, conn *websocket.Conn) error {
	g.mu.Lock()
	_, inGame := g.colorOf(playerID)
	isAuthorized := inGame || g.canSpectate()
	g.mu.Unlock()

	if !isAuthorized {
		return fmt.Errorf("%s in game %s: %w", playerID, g.ID, ErrNotInGame)
	}

	g.connections.mu.Lock()
	if _, exists := g.connections.connections[playerID]; exists {
		// keep the healthy connection, reject the duplicate
		g.connections.mu.Unlock()
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Connection already exists"),
		)
		conn.Close()
		return nil
	}
	g.connections.connections[playerID] = conn
	g.connections.mu.Unlock()
	log.Infow("connection registered", "game", g.ID, "player", playerID)

	g.broadcastState(g.GetState())
	return nil
}

// UnregisterConnection drops playerID's observer if conn is still the
// registered one.
func (g *Game) UnregisterConnection(playerID string, conn *websocket.Conn) {
	g.connections.mu.Lock()
	defer g.connections.mu.Unlock()

	if current, exists := g.connections.connections[playerID]; exists && current == conn {
		delete(g.connections.connections, playerID)
		log.Infow("connection unregistered", "game", g.ID, "player", playerID)
	}
}

// Connections reports how many observers are attached.
func (g *Game) Connections() int {
	g.connections.mu.Lock()
	defer g.connections.mu.Unlock()
	return len(g.connections.connections)
}

// Send writes msg to playerID's observer, if one is attached.
func (g *Game) Send(playerID string, msg ws.Message) error {
	g.connections.mu.Lock()
	defer g.connections.mu.Unlock()

	conn, ok := g.connections.connections[playerID]
	if !ok {
		return nil
	}
	return conn.WriteJSON(msg)
}

// advance records plies as sent unless a newer state already went out.
// Caller holds gc.mu.
func (gc *GameConnections) advance(plies int) bool {
	if plies < gc.sentPlies {
		return false
	}
	gc.sentPlies = plies
	return true
}

// broadcastState sends state to every observer. Writes are serialized by the
// connections mutex; a state older than one already sent is dropped, and a
// failed write drops that observer.
func (g *Game) broadcastState(state GameState) {
	payload, err := json.Marshal(state)
	if err != nil {
		log.Errorw("marshal game state", "game", g.ID, "err", err)
		return
	}
	msg := ws.Message{Type: ws.MessageTypeGameState, Payload: payload}

	g.connections.mu.Lock()
	defer g.connections.mu.Unlock()
	if !g.connections.advance(state.Plies) {
		log.Debugw("stale state dropped", "game", g.ID, "plies", state.Plies, "sent", g.connections.sentPlies)
		return
	}
	for playerID, conn := range g.connections.connections {
		if err := conn.WriteJSON(msg); err != nil {
			log.Warnw("send state failed", "game", g.ID, "player", playerID, "err", err)
			delete(g.connections.connections, playerID)
		}
	}
}
