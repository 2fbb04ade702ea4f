package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/benbeisheim/minichess-backend/internal/middleware"
	"github.com/benbeisheim/minichess-backend/internal/model"
	"github.com/benbeisheim/minichess-backend/internal/service"
)

type GameController struct {
	gameService *service.GameService
}

func NewGameController(gameService *service.GameService) *GameController {
	return &GameController{gameService: gameService}
}

func (gc *GameController) CreateGame(c *fiber.Ctx) error {
	gameID, err := gc.gameService.CreateGame()
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Game created",
		"gameId":  gameID,
	})
}

func (gc *GameController) JoinGame(c *fiber.Ctx) error {
	color, err := gc.gameService.JoinGame(c.Params("gameId"), middleware.PlayerID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Game joined",
		"color":   color,
	})
}

func (gc *GameController) GetGameState(c *fiber.Ctx) error {
	gameState, err := gc.gameService.GetGameState(c.Params("gameId"))
	if err != nil {
		return err
	}
	return c.JSON(gameState)
}

func (gc *GameController) JoinMatchmaking(c *fiber.Ctx) error {
	if err := gc.gameService.JoinMatchmaking(middleware.PlayerID(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "queued",
	})
}

func (gc *GameController) LeaveMatchmaking(c *fiber.Ctx) error {
	if !gc.gameService.LeaveMatchmaking(middleware.PlayerID(c)) {
		return fiber.NewError(fiber.StatusNotFound, "player not in queue")
	}
	return c.JSON(fiber.Map{
		"status": "left",
	})
}

// MatchmakingStatus tells a player queued over REST whether it has been
// paired, and into which game.
func (gc *GameController) MatchmakingStatus(c *fiber.Ctx) error {
	playerID := middleware.PlayerID(c)
	if event, ok := gc.gameService.MatchStatus(playerID); ok {
		return c.JSON(fiber.Map{
			"status": "matched",
			"gameId": event.GameID,
			"color":  event.Color,
		})
	}
	if gc.gameService.IsQueued(playerID) {
		return c.JSON(fiber.Map{
			"status": "queued",
		})
	}
	return fiber.NewError(fiber.StatusNotFound, "player not in queue")
}

// PossibleMoves answers GET /:gameId/moves?x=&y= for the side to move.
func (gc *GameController) PossibleMoves(c *fiber.Ctx) error {
	from, err := squareFromQuery(c)
	if err != nil {
		return err
	}
	moves, err := gc.gameService.PossibleMoves(c.Params("gameId"), from)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"from":  from,
		"moves": moves,
	})
}

func (gc *GameController) SelectSquare(c *fiber.Ctx) error {
	var pos model.Position
	if err := c.BodyParser(&pos); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid square: "+err.Error())
	}
	state, err := gc.gameService.SelectSquare(c.Params("gameId"), middleware.PlayerID(c), pos)
	if err != nil {
		return err
	}
	return c.JSON(state)
}

func (gc *GameController) MakeMove(c *fiber.Ctx) error {
	var move model.WSMove
	if err := c.BodyParser(&move); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid move: "+err.Error())
	}
	state, err := gc.gameService.HandleMove(c.Params("gameId"), middleware.PlayerID(c), move)
	if err != nil {
		return err
	}
	return c.JSON(state)
}

func squareFromQuery(c *fiber.Ctx) (model.Position, error) {
	x, err := strconv.Atoi(c.Query("x"))
	if err != nil {
		return model.Position{}, fiber.NewError(fiber.StatusBadRequest, "x must be an integer")
	}
	y, err := strconv.Atoi(c.Query("y"))
	if err != nil {
		return model.Position{}, fiber.NewError(fiber.StatusBadRequest, "y must be an integer")
	}
	return model.Position{X: x, Y: y}, nil
}
