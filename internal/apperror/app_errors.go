package apperror

import "errors"

var (
	ErrGameFinished = errors.New("game is already finished")
	ErrNotYourTurn  = errors.New("it's not your turn")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrInvalidCell  = errors.New("invalid cell index")
	ErrInvalidMark  = errors.New("invalid player mark")

	ErrInvalidOpponent  = errors.New("invalid opponent mode")
	ErrControllerClosed = errors.New("round controller is closed")
	ErrSessionNotFound  = errors.New("session not found")
)
