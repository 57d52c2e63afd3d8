package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-round/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
)

// WinCombos lists the winning lines in scan order: rows, columns, diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// NewRound returns an empty board with X to move.
func NewRound() entity.Round {
	return entity.Round{Turn: entity.PlayerX}
}

// DetectOutcome evaluates the board. The first complete line in WinCombos order wins.
func DetectOutcome(board entity.Board) entity.Outcome {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return entity.Win(a)
		}
	}

	// the round continues until every cell is filled
	for _, cell := range board {
		if cell == entity.EmptyCell {
			return entity.NoOutcome()
		}
	}

	return entity.Draw()
}

// Outcome is recomputed from the board on every call.
func Outcome(round entity.Round) entity.Outcome {
	return DetectOutcome(round.Board)
}

// ApplyMove places mark at cell. On rejection the input round is returned
// unchanged together with the reason.
func ApplyMove(round entity.Round, cell int, mark entity.Mark) (entity.Round, error) {
	if err := validateMove(round, cell, mark); err != nil {
		return round, err
	}

	next := round
	next.Board[cell] = mark

	if !DetectOutcome(next.Board).IsDecided() {
		next.Turn = mark.Opposite()
	}

	return next, nil
}

// validateMove - checks if the move is valid.
func validateMove(round entity.Round, cell int, mark entity.Mark) error {
	if DetectOutcome(round.Board).IsDecided() {
		return apperror.ErrGameFinished
	}

	if cell < 0 || cell >= entity.BoardSize {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if round.Turn != mark {
		return apperror.ErrNotYourTurn
	}

	if round.Board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	return nil
}

// EmptyCells returns the indexes of unoccupied cells in ascending order.
func EmptyCells(board entity.Board) []int {
	cells := make([]int, 0, len(board))
	for i, cell := range board {
		if cell == entity.EmptyCell {
			cells = append(cells, i)
		}
	}

	return cells
}
