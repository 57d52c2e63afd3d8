package websocket

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
)

const (
	actionGameTurn     = "game:turn"
	actionGameRestart  = "game:restart"
	actionGameOpponent = "game:opponent"
	actionScoreReset   = "score:reset"
	actionThemeToggle  = "theme:toggle"

	actionGameState = "game:state"
	actionTheme     = "theme"
	actionError     = "error"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type TurnPayload struct {
	Cell *int `json:"cell" validate:"required,min=0,max=8"`
}

type OpponentPayload struct {
	Opponent entity.Opponent `json:"opponent" validate:"required,oneof=human computer"`
}

type ThemePayload struct {
	DarkMode bool   `json:"dark_mode"`
	Class    string `json:"class"`
}

type ErrorPayload struct {
	Action string `json:"action,omitempty"`
	Error  string `json:"error"`
}

func newMessage(action string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{Action: action, Payload: raw}, nil
}

// decodePayload unmarshals and validates the payload of msg into dst.
func decodePayload(msg *Message, dst any) error {
	payload := msg.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		return err
	}

	return validate.Struct(dst)
}
