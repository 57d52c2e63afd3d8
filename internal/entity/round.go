package entity

import "fmt"

type Mark string

const (
	PlayerX Mark = "X"
	PlayerO Mark = "O"

	EmptyCell Mark = ""
)

const BoardSize = 9

// Board is a 3x3 grid stored row-major, index = row*3 + col.
type Board [BoardSize]Mark

const (
	StatusNone = "none"
	StatusWin  = "win"
	StatusDraw = "draw"
)

// Outcome is the evaluation of a board. Winner is set only for StatusWin.
type Outcome struct {
	Status string `json:"status"`
	Winner Mark   `json:"winner,omitempty"`
}

func NoOutcome() Outcome {
	return Outcome{Status: StatusNone}
}

func Win(mark Mark) Outcome {
	return Outcome{Status: StatusWin, Winner: mark}
}

func Draw() Outcome {
	return Outcome{Status: StatusDraw}
}

func (that Outcome) IsDecided() bool {
	return that.Status != StatusNone
}

func (that Mark) IsValid() bool {
	return that == PlayerX || that == PlayerO
}

// Opposite returns the other player's mark.
func (that Mark) Opposite() Mark {
	if that == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// Round is one game from an empty board until a win or a draw.
// Turn keeps its last value once the round is decided.
type Round struct {
	Board Board `json:"board"`
	Turn  Mark  `json:"turn"`
}

// StatusText renders the outcome the way the board header shows it.
func StatusText(turn Mark, outcome Outcome) string {
	switch outcome.Status {
	case StatusWin:
		return fmt.Sprintf("Winner: %s", outcome.Winner)
	case StatusDraw:
		return "Draw!"
	default:
		return fmt.Sprintf("Next Player: %s", turn)
	}
}
