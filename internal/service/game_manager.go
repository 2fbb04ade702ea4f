package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/benbeisheim/minichess-backend/internal/model"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
)

// MatchFoundEvent is sent on a player's matchmaking channel once paired.
type MatchFoundEvent struct {
	GameID string            `json:"gameId"`
	Color  model.PlayerColor `json:"color"`
}

type GameManager struct {
	games            map[string]*model.Game
	queue            *model.Queue
	matchingChannels map[string]chan string
	// matches holds each matched player's latest pairing until it queues again.
	matches map[string]MatchFoundEvent
	policy  model.Policy
	mu               sync.RWMutex
}

func NewGameManager(policy model.Policy) *GameManager {
	return &GameManager{
		games:            make(map[string]*model.Game),
		queue:            model.NewQueue(),
		matchingChannels: make(map[string]chan string),
		matches:          make(map[string]MatchFoundEvent),
		policy:           policy,
	}
}

// Run pairs queued players every interval until ctx is done.
func (gm *GameManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for gm.MatchPending() {
			}
		}
	}
}

// MatchPending pairs the two longest-waiting players into a new game and
// notifies their channels. It reports whether a pair was made.
func (gm *GameManager) MatchPending() bool {
	queued1, queued2, ok := gm.queue.NextPair()
	if !ok {
		return false
	}
	player1, player2 := queued1.Player, queued2.Player

	gameID := uuid.New().String()
	game := model.NewGame(gameID, gm.policy)
	p1Color, err := game.AddPlayer(player1.ID)
	if err != nil {
		log.Errorw("seat matched player", "game", gameID, "player", player1.ID, "err", err)
		return false
	}
	p2Color, err := game.AddPlayer(player2.ID)
	if err != nil {
		log.Errorw("seat matched player", "game", gameID, "player", player2.ID, "err", err)
		return false
	}

	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.games[gameID] = game
	now := time.Now()
	log.Infow("match found", "game", gameID,
		"white", player1.ID, "whiteWaited", queued1.Waited(now),
		"black", player2.ID, "blackWaited", queued2.Waited(now))

	gm.recordMatch(player1.ID, MatchFoundEvent{GameID: gameID, Color: p1Color})
	gm.recordMatch(player2.ID, MatchFoundEvent{GameID: gameID, Color: p2Color})
	return true
}

// recordMatch remembers event for MatchStatus and notifies playerID's channel.
// Caller holds gm.mu.
func (gm *GameManager) recordMatch(playerID string, event MatchFoundEvent) {
	gm.matches[playerID] = event
	gm.notifyMatch(playerID, event)
}

// notifyMatch sends event to playerID's channel, then closes and forgets the
// channel. Caller holds gm.mu.
func (gm *GameManager) notifyMatch(playerID string, event MatchFoundEvent) {
	ch, ok := gm.matchingChannels[playerID]
	if !ok {
		log.Debugw("no matchmaking channel, pairing kept for status", "player", playerID, "game", event.GameID)
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Errorw("marshal match event", "player", playerID, "err", err)
		return
	}
	select {
	case ch <- string(payload):
	default:
		log.Warnw("match event dropped", "player", playerID, "game", event.GameID)
	}
	delete(gm.matchingChannels, playerID)
	close(ch)
}

func (gm *GameManager) RegisterMatchmakingChannel(playerID string, ch chan string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if existing, exists := gm.matchingChannels[playerID]; exists {
		delete(gm.matchingChannels, playerID)
		close(existing)
	}
	gm.matchingChannels[playerID] = ch
}

// UnregisterMatchmakingChannel forgets the channel without closing it; the
// creator of the channel owns it.
func (gm *GameManager) UnregisterMatchmakingChannel(playerID string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	delete(gm.matchingChannels, playerID)
}

// JoinMatchmaking queues playerID and forgets any earlier pairing.
func (gm *GameManager) JoinMatchmaking(playerID string) error {
	if err := gm.queue.AddPlayer(model.Player{ID: playerID}); err != nil {
		return err
	}
	gm.mu.Lock()
	delete(gm.matches, playerID)
	gm.mu.Unlock()
	return nil
}

func (gm *GameManager) LeaveMatchmaking(playerID string) bool {
	return gm.queue.Remove(playerID)
}

// IsQueued reports whether playerID is still waiting for an opponent.
func (gm *GameManager) IsQueued(playerID string) bool {
	return gm.queue.Contains(playerID)
}

// MatchStatus returns the game playerID was last paired into.
func (gm *GameManager) MatchStatus(playerID string) (MatchFoundEvent, bool) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	event, ok := gm.matches[playerID]
	return event, ok
}

func (gm *GameManager) CreateGame(gameID string) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if _, exists := gm.games[gameID]; exists {
		return fmt.Errorf("%s: %w", gameID, ErrGameExists)
	}
	gm.games[gameID] = model.NewGame(gameID, gm.policy)
	return nil
}

func (gm *GameManager) GetGame(gameID string) (*model.Game, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[gameID]
	if !exists {
		return nil, fmt.Errorf("%s: %w", gameID, ErrGameNotFound)
	}
	return game, nil
}

func (gm *GameManager) AddPlayerToGame(gameID string, playerID string) (model.PlayerColor, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return "", err
	}
	return game.AddPlayer(playerID)
}

func (gm *GameManager) GetGameState(gameID string) (model.GameState, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return model.GameState{}, err
	}
	return game.GetState(), nil
}

func (gm *GameManager) MakeMove(gameID string, playerID string, move model.WSMove) (model.GameState, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return model.GameState{}, err
	}
	return game.MakeMove(playerID, move)
}

func (gm *GameManager) RegisterConnection(gameID string, playerID string, conn *websocket.Conn) error {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}
	return game.RegisterConnection(playerID, conn)
}

func (gm *GameManager) UnregisterConnection(gameID string, playerID string, conn *websocket.Conn) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return
	}
	game.UnregisterConnection(playerID, conn)
}
