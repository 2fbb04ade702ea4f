package controller

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"

	"github.com/benbeisheim/minichess-backend/internal/middleware"
	"github.com/benbeisheim/minichess-backend/internal/model"
	"github.com/benbeisheim/minichess-backend/internal/service"
	"github.com/benbeisheim/minichess-backend/internal/ws"
)

type WebSocketController struct {
	gameService *service.GameService
}

func NewWebSocketController(gameService *service.GameService) *WebSocketController {
	return &WebSocketController{
		gameService: gameService,
	}
}

// PossibleMovesPayload answers a possibleMoves request.
type PossibleMovesPayload struct {
	From  model.Position   `json:"from"`
	Moves []model.Position `json:"moves"`
}

// HandleConnection serves /ws/game/:gameId until the client goes away.
func (wsc *WebSocketController) HandleConnection(c *websocket.Conn) {
	gameID := c.Params("gameId")
	playerID, _ := c.Locals(middleware.PlayerIDKey).(string)

	if err := wsc.gameService.RegisterConnection(gameID, playerID, c); err != nil {
		log.Warnw("register connection", "game", gameID, "player", playerID, "err", err)
		writeError(c, err)
		c.Close()
		return
	}
	defer wsc.gameService.UnregisterConnection(gameID, playerID, c)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Debugw("websocket closed", "game", gameID, "player", playerID, "err", err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg ws.Message
		if err := json.Unmarshal(message, &msg); err != nil {
			wsc.reply(gameID, playerID, errorMessage(fmt.Errorf("parse message: %w", err)))
			continue
		}
		if err := wsc.handleMessage(gameID, playerID, msg); err != nil {
			log.Debugw("message rejected", "game", gameID, "player", playerID, "type", msg.Type, "err", err)
			wsc.reply(gameID, playerID, errorMessage(err))
		}
	}
}

func (wsc *WebSocketController) handleMessage(gameID, playerID string, msg ws.Message) error {
	switch msg.Type {
	case ws.MessageTypeMove:
		var move model.WSMove
		if err := json.Unmarshal(msg.Payload, &move); err != nil {
			return err
		}
		// the resulting state reaches every observer through the broadcast
		_, err := wsc.gameService.HandleMove(gameID, playerID, move)
		return err

	case ws.MessageTypeSelect:
		var pos model.Position
		if err := json.Unmarshal(msg.Payload, &pos); err != nil {
			return err
		}
		state, err := wsc.gameService.SelectSquare(gameID, playerID, pos)
		if err != nil {
			return err
		}
		return wsc.send(gameID, playerID, ws.MessageTypeGameState, state)

	case ws.MessageTypePossibleMoves:
		var pos model.Position
		if err := json.Unmarshal(msg.Payload, &pos); err != nil {
			return err
		}
		moves, err := wsc.gameService.PossibleMoves(gameID, pos)
		if err != nil {
			return err
		}
		return wsc.send(gameID, playerID, ws.MessageTypePossibleMoves, PossibleMovesPayload{From: pos, Moves: moves})

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func (wsc *WebSocketController) send(gameID, playerID string, t ws.MessageType, payload any) error {
	msg, err := ws.NewMessage(t, payload)
	if err != nil {
		return err
	}
	wsc.reply(gameID, playerID, msg)
	return nil
}

func (wsc *WebSocketController) reply(gameID, playerID string, msg ws.Message) {
	if err := wsc.gameService.Send(gameID, playerID, msg); err != nil {
		log.Warnw("websocket write", "game", gameID, "player", playerID, "err", err)
	}
}

// HandleMatchmaking serves /ws/matchmaking: it queues the player and writes
// the match event once a pairing is made, then closes.
func (wsc *WebSocketController) HandleMatchmaking(c *websocket.Conn) {
	playerID, _ := c.Locals(middleware.PlayerIDKey).(string)

	ch := make(chan string, 1)
	wsc.gameService.RegisterMatchmakingChannel(playerID, ch)
	if err := wsc.gameService.JoinMatchmaking(playerID); err != nil && !errors.Is(err, model.ErrAlreadyQueued) {
		wsc.gameService.UnregisterMatchmakingChannel(playerID)
		writeError(c, err)
		c.Close()
		return
	}

	// reads only to notice the client leaving
	gone := make(chan struct{})
	conn := c.Conn
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	// c is returned to a pool once the handler exits
	defer func() {
		c.Close()
		<-gone
	}()

	select {
	case event, ok := <-ch:
		if !ok {
			// replaced by a newer registration for the same player
			return
		}
		if err := c.WriteMessage(websocket.TextMessage, []byte(event)); err != nil {
			log.Warnw("send match event", "player", playerID, "err", err)
		}
	case <-gone:
		wsc.gameService.UnregisterMatchmakingChannel(playerID)
		if wsc.gameService.LeaveMatchmaking(playerID) {
			return
		}
		// already taken off the queue: the pairing stands and can be
		// looked up over GET /api/game/matchmaking/status
		if event, ok := wsc.gameService.MatchStatus(playerID); ok {
			log.Warnw("matched player left before notification", "player", playerID, "game", event.GameID, "color", event.Color)
		} else {
			log.Warnw("player left matchmaking while being paired", "player", playerID)
		}
	}
}

func errorMessage(err error) ws.Message {
	msg, _ := ws.NewMessage(ws.MessageTypeError, ws.ErrorPayload{Error: err.Error()})
	return msg
}

// writeError writes directly to a connection that is not registered with a game.
func writeError(c *websocket.Conn, err error) {
	if werr := c.WriteJSON(errorMessage(err)); werr != nil {
		log.Debugw("websocket write", "err", werr)
	}
}
