package scoreboard

import (
	"fmt"
	"sync"

	"github.com/rocketscienceinc/tictactoe-round/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
)

// Ledger counts wins per player. It outlives rounds and is shared by every
// controller and handler of one session.
type Ledger struct {
	mu     sync.Mutex
	scores entity.Scores

	nextID      uint64
	subscribers map[uint64]func()
}

func NewLedger() *Ledger {
	return &Ledger{
		subscribers: make(map[uint64]func()),
	}
}

// RecordWin increments only the given player's count.
func (that *Ledger) RecordWin(mark entity.Mark) error {
	that.mu.Lock()

	switch mark {
	case entity.PlayerX:
		that.scores.X++
	case entity.PlayerO:
		that.scores.O++
	default:
		that.mu.Unlock()
		return fmt.Errorf("%w: %q", apperror.ErrInvalidMark, mark)
	}

	that.publishAndUnlock()

	return nil
}

func (that *Ledger) Reset() {
	that.mu.Lock()
	that.scores = entity.Scores{}
	that.publishAndUnlock()
}

func (that *Ledger) Scores() entity.Scores {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.scores
}

// Subscribe registers fn to run after every change. fn runs on the caller's
// goroutine without the ledger lock and must not block.
func (that *Ledger) Subscribe(fn func()) (unsubscribe func()) {
	that.mu.Lock()
	defer that.mu.Unlock()

	id := that.nextID
	that.nextID++
	that.subscribers[id] = fn

	return func() {
		that.mu.Lock()
		defer that.mu.Unlock()

		delete(that.subscribers, id)
	}
}

func (that *Ledger) publishAndUnlock() {
	subscribers := make([]func(), 0, len(that.subscribers))
	for _, fn := range that.subscribers {
		subscribers = append(subscribers, fn)
	}
	that.mu.Unlock()

	for _, fn := range subscribers {
		fn()
	}
}
