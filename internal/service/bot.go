package service

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
	"github.com/rocketscienceinc/tictactoe-round/internal/tictactoe"
)

var ErrNoAvailableMoves = errors.New("no available moves")

type BotService interface {
	ChooseCell(board entity.Board) (int, error)
}

type botService struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBotService picks uniformly among empty cells. A nil source seeds from the runtime.
func NewBotService(src rand.Source) BotService {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &botService{
		rnd: rand.New(src), //nolint: gosec // it's ok
	}
}

func (that *botService) ChooseCell(board entity.Board) (int, error) {
	availableCells := tictactoe.EmptyCells(board)
	if len(availableCells) == 0 {
		return 0, ErrNoAvailableMoves
	}

	that.mu.Lock()
	idx := that.rnd.IntN(len(availableCells))
	that.mu.Unlock()

	return availableCells[idx], nil
}
