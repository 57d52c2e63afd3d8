package usecase

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-round/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
	"github.com/rocketscienceinc/tictactoe-round/internal/scoreboard"
	"github.com/rocketscienceinc/tictactoe-round/internal/tictactoe"
)

const (
	waitFor  = time.Second
	pollTick = 5 * time.Millisecond
)

// firstEmptyBot always takes the lowest free cell.
type firstEmptyBot struct{}

func (firstEmptyBot) ChooseCell(board entity.Board) (int, error) {
	cells := tictactoe.EmptyCells(board)
	if len(cells) == 0 {
		return 0, apperror.ErrGameFinished
	}
	return cells[0], nil
}

type recorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (that *recorder) listen(snapshot Snapshot) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.snapshots = append(that.snapshots, snapshot)
}

func (that *recorder) count() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.snapshots)
}

func (that *recorder) all() []Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]Snapshot(nil), that.snapshots...)
}

type fixture struct {
	ctrl   *RoundController
	clock  *clock.Mock
	ledger *scoreboard.Ledger
	events *recorder
}

func newFixture(t *testing.T, settings RoundSettings) *fixture {
	t.Helper()

	f := &fixture{
		clock:  clock.NewMock(),
		ledger: scoreboard.NewLedger(),
		events: &recorder{},
	}

	f.ctrl = NewRoundController(slog.New(slog.DiscardHandler), f.clock, f.ledger, firstEmptyBot{}, settings, f.events.listen)
	t.Cleanup(f.ctrl.Close)

	require.NoError(t, f.ctrl.StartRound())

	return f
}

func (that *fixture) play(t *testing.T, cells ...int) {
	t.Helper()

	for _, cell := range cells {
		require.NoError(t, that.ctrl.PlayCell(cell), "cell %d", cell)
	}
}

func markCount(board entity.Board, mark entity.Mark) int {
	n := 0
	for _, cell := range board {
		if cell == mark {
			n++
		}
	}
	return n
}

func TestRoundController_StartRound(t *testing.T) {
	t.Run("Starts with an empty board and X to move", func(t *testing.T) {
		// Given/When: a freshly started controller
		f := newFixture(t, RoundSettings{})

		// Then: the snapshot shows a new round
		snapshot := f.ctrl.Snapshot()
		assert.Equal(t, entity.Board{}, snapshot.Board)
		assert.Equal(t, entity.PlayerX, snapshot.Turn)
		assert.Equal(t, entity.NoOutcome(), snapshot.Outcome)
		assert.Equal(t, "Next Player: X", snapshot.Status)
		assert.Equal(t, 0, snapshot.Elapsed)
		assert.Equal(t, entity.OpponentHuman, snapshot.Opponent)
		assert.Equal(t, 1, f.events.count())
	})

	t.Run("Restart clears the board and the counter", func(t *testing.T) {
		// Given: a round with a move and one elapsed second
		f := newFixture(t, RoundSettings{})
		f.play(t, 4)
		f.clock.Add(time.Second)
		require.Eventually(t, func() bool { return f.ctrl.Snapshot().Elapsed == 1 }, waitFor, pollTick)

		// When: restarting
		require.NoError(t, f.ctrl.StartRound())

		// Then: everything is back to the start
		snapshot := f.ctrl.Snapshot()
		assert.Equal(t, entity.Board{}, snapshot.Board)
		assert.Equal(t, 0, snapshot.Elapsed)
	})
}

func TestRoundController_Tick(t *testing.T) {
	t.Run("Counts seconds while the round is open", func(t *testing.T) {
		f := newFixture(t, RoundSettings{})

		for i := 1; i <= 3; i++ {
			f.clock.Add(time.Second)
			require.Eventually(t, func() bool { return f.ctrl.Snapshot().Elapsed == i }, waitFor, pollTick)
		}
	})

	t.Run("Stops when the round is decided", func(t *testing.T) {
		// Given: X wins the left column after one second
		f := newFixture(t, RoundSettings{})
		f.clock.Add(time.Second)
		require.Eventually(t, func() bool { return f.ctrl.Snapshot().Elapsed == 1 }, waitFor, pollTick)
		f.play(t, 0, 1, 3, 4, 6)

		// When: time passes before the auto-reset
		f.clock.Add(time.Second)

		// Then: the counter no longer moves
		snapshot := f.ctrl.Snapshot()
		assert.Equal(t, 1, snapshot.Elapsed)
		assert.Equal(t, entity.Win(entity.PlayerX), snapshot.Outcome)
	})

	t.Run("Listener sees ticks in order", func(t *testing.T) {
		f := newFixture(t, RoundSettings{})

		for i := 1; i <= 2; i++ {
			f.clock.Add(time.Second)
			require.Eventually(t, func() bool { return f.ctrl.Snapshot().Elapsed == i }, waitFor, pollTick)
		}

		events := f.events.all()
		require.Len(t, events, 3)
		for i, snapshot := range events {
			assert.Equal(t, i, snapshot.Elapsed)
		}
	})
}

func TestRoundController_EndOfRound(t *testing.T) {
	t.Run("Win is recorded once", func(t *testing.T) {
		// Given: X wins
		f := newFixture(t, RoundSettings{})
		f.play(t, 0, 1, 3, 4, 6)
		require.Equal(t, entity.Scores{X: 1}, f.ledger.Scores())

		// When: the end-of-round handler runs again for the same round
		f.ctrl.mu.Lock()
		f.ctrl.finishRoundLocked()
		f.ctrl.mu.Unlock()

		// Then: the ledger is unchanged
		assert.Equal(t, entity.Scores{X: 1}, f.ledger.Scores())
		assert.Equal(t, "Winner: X", f.ctrl.Snapshot().Status)
	})

	t.Run("Draw leaves the ledger alone", func(t *testing.T) {
		f := newFixture(t, RoundSettings{})
		f.play(t, 0, 1, 2, 4, 3, 5, 7, 6, 8)

		snapshot := f.ctrl.Snapshot()
		assert.Equal(t, entity.Draw(), snapshot.Outcome)
		assert.Equal(t, "Draw!", snapshot.Status)
		assert.Equal(t, entity.Scores{}, f.ledger.Scores())
	})

	t.Run("Decided round starts over after the reset delay", func(t *testing.T) {
		// Given: a finished round
		f := newFixture(t, RoundSettings{})
		f.play(t, 0, 1, 3, 4, 6)

		// When: the reset delay passes
		f.clock.Add(DefaultResetDelay)

		// Then: a new round has started and the score is kept
		require.Eventually(t, func() bool {
			return f.ctrl.Snapshot().Board == entity.Board{}
		}, waitFor, pollTick)

		snapshot := f.ctrl.Snapshot()
		assert.Equal(t, entity.PlayerX, snapshot.Turn)
		assert.Equal(t, entity.Scores{X: 1}, snapshot.Scores)
	})

	t.Run("Stale reset does not clear a newer round", func(t *testing.T) {
		// Given: a finished round followed by a manual restart and a move
		f := newFixture(t, RoundSettings{})
		f.play(t, 0, 1, 3, 4, 6)

		f.ctrl.mu.Lock()
		staleSeq := f.ctrl.roundSeq
		f.ctrl.mu.Unlock()

		require.NoError(t, f.ctrl.StartRound())
		f.play(t, 4)

		// When: the reset armed for the old round fires
		f.ctrl.autoReset(staleSeq)

		// Then: the new round keeps its move
		assert.Equal(t, entity.PlayerX, f.ctrl.Snapshot().Board[4])
	})
}

func TestRoundController_Moves(t *testing.T) {
	t.Run("Rejected move changes nothing and notifies nobody", func(t *testing.T) {
		// Given: X took the center
		f := newFixture(t, RoundSettings{})
		f.play(t, 4)
		before := f.ctrl.Snapshot()
		notified := f.events.count()

		// When: O tries the same cell, X plays out of turn, and a bad index
		errOccupied := f.ctrl.RequestMove(4, entity.PlayerO)
		errTurn := f.ctrl.RequestMove(0, entity.PlayerX)
		errCell := f.ctrl.PlayCell(42)

		// Then: each is rejected on its own and the state is unchanged
		require.ErrorIs(t, errOccupied, apperror.ErrCellOccupied)
		require.ErrorIs(t, errTurn, apperror.ErrNotYourTurn)
		require.ErrorIs(t, errCell, apperror.ErrInvalidCell)
		assert.Equal(t, before, f.ctrl.Snapshot())
		assert.Equal(t, notified, f.events.count())
	})

	t.Run("Move after the round is decided is rejected", func(t *testing.T) {
		f := newFixture(t, RoundSettings{})
		f.play(t, 0, 1, 3, 4, 6)

		err := f.ctrl.PlayCell(8)

		require.ErrorIs(t, err, apperror.ErrGameFinished)
		assert.Equal(t, entity.EmptyCell, f.ctrl.Snapshot().Board[8])
	})

	t.Run("Hot-seat play alternates marks", func(t *testing.T) {
		f := newFixture(t, RoundSettings{})

		f.play(t, 0, 4)

		snapshot := f.ctrl.Snapshot()
		assert.Equal(t, entity.PlayerX, snapshot.Board[0])
		assert.Equal(t, entity.PlayerO, snapshot.Board[4])
		assert.Equal(t, "Next Player: X", snapshot.Status)
	})
}

func TestRoundController_Opponent(t *testing.T) {
	computerO := RoundSettings{Opponent: entity.OpponentComputer, ComputerMark: entity.PlayerO}
	computerX := RoundSettings{Opponent: entity.OpponentComputer, ComputerMark: entity.PlayerX}

	t.Run("Computer answers after the delay", func(t *testing.T) {
		// Given: the human plays the center
		f := newFixture(t, computerO)
		f.play(t, 4)
		require.Equal(t, 0, markCount(f.ctrl.Snapshot().Board, entity.PlayerO))

		// When: the opponent delay passes
		f.clock.Add(DefaultOpponentDelay)

		// Then: the computer has taken an empty cell and it is X's turn again
		require.Eventually(t, func() bool {
			return f.ctrl.Snapshot().Turn == entity.PlayerX
		}, waitFor, pollTick)

		snapshot := f.ctrl.Snapshot()
		assert.Equal(t, entity.PlayerO, snapshot.Board[0])
		assert.Equal(t, entity.PlayerX, snapshot.Board[4])
		assert.Equal(t, entity.PlayerO, snapshot.ComputerMark)
	})

	t.Run("Click during the computer's turn is rejected", func(t *testing.T) {
		f := newFixture(t, computerO)
		f.play(t, 4)

		err := f.ctrl.PlayCell(0)

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Equal(t, entity.EmptyCell, f.ctrl.Snapshot().Board[0])
	})

	t.Run("Computer opens when it plays X", func(t *testing.T) {
		f := newFixture(t, computerX)

		f.clock.Add(DefaultOpponentDelay)

		require.Eventually(t, func() bool {
			return f.ctrl.Snapshot().Board[0] == entity.PlayerX
		}, waitFor, pollTick)
	})

	t.Run("Pending move is cancelled by a mode switch", func(t *testing.T) {
		// Given: the computer is about to open
		f := newFixture(t, computerX)

		// When: switching to hot-seat before the delay passes
		require.NoError(t, f.ctrl.SetOpponent(entity.OpponentHuman))
		f.clock.Add(DefaultOpponentDelay)

		// Then: no move was made
		assert.Equal(t, entity.Board{}, f.ctrl.Snapshot().Board)
	})

	t.Run("Stale opponent callback is ignored", func(t *testing.T) {
		// Given: a pending computer move armed for an older state
		f := newFixture(t, computerX)

		f.ctrl.mu.Lock()
		staleVersion := f.ctrl.version
		f.ctrl.mu.Unlock()

		require.NoError(t, f.ctrl.StartRound())

		// When: the old callback fires
		f.ctrl.opponentMove(staleVersion)

		// Then: the board is untouched
		assert.Equal(t, entity.Board{}, f.ctrl.Snapshot().Board)
	})

	t.Run("Computer win is recorded for its mark", func(t *testing.T) {
		// Given: the computer plays X and takes the lowest free cell
		f := newFixture(t, computerX)

		// X:0, O:4, X:1, O:5, X:2 completes the top row
		for _, humanCell := range []int{4, 5} {
			f.clock.Add(DefaultOpponentDelay)
			require.Eventually(t, func() bool {
				return f.ctrl.Snapshot().Turn == entity.PlayerO
			}, waitFor, pollTick)
			f.play(t, humanCell)
		}

		f.clock.Add(DefaultOpponentDelay)

		require.Eventually(t, func() bool {
			return f.ledger.Scores().X == 1
		}, waitFor, pollTick)
		assert.Equal(t, entity.Win(entity.PlayerX), f.ctrl.Snapshot().Outcome)
	})
}

func TestRoundController_SetOpponent(t *testing.T) {
	t.Run("Unknown mode is rejected", func(t *testing.T) {
		f := newFixture(t, RoundSettings{})

		err := f.ctrl.SetOpponent("robot")

		require.ErrorIs(t, err, apperror.ErrInvalidOpponent)
		assert.Equal(t, entity.OpponentHuman, f.ctrl.Snapshot().Opponent)
	})

	t.Run("Switching restarts the round", func(t *testing.T) {
		f := newFixture(t, RoundSettings{})
		f.play(t, 4)

		require.NoError(t, f.ctrl.SetOpponent(entity.OpponentComputer))

		snapshot := f.ctrl.Snapshot()
		assert.Equal(t, entity.Board{}, snapshot.Board)
		assert.Equal(t, entity.OpponentComputer, snapshot.Opponent)
	})
}

func TestRoundController_ResetScores(t *testing.T) {
	// Given: X has a win on the ledger and a round in progress
	f := newFixture(t, RoundSettings{})
	f.play(t, 0, 1, 3, 4, 6)
	f.clock.Add(DefaultResetDelay)
	require.Eventually(t, func() bool { return f.ctrl.Snapshot().Board == entity.Board{} }, waitFor, pollTick)
	f.play(t, 4)

	// When: resetting the score
	require.NoError(t, f.ctrl.ResetScores())

	// Then: the ledger is cleared and the round is untouched
	snapshot := f.ctrl.Snapshot()
	assert.Equal(t, entity.Scores{}, snapshot.Scores)
	assert.Equal(t, entity.PlayerX, snapshot.Board[4])
	assert.Equal(t, entity.Scores{}, f.events.all()[f.events.count()-1].Scores)
}

func TestRoundController_Close(t *testing.T) {
	// Given: a closed controller
	f := newFixture(t, RoundSettings{})
	f.ctrl.Close()

	// When: time passes and clicks arrive
	f.clock.Add(5 * time.Second)
	errPlay := f.ctrl.PlayCell(0)
	errStart := f.ctrl.StartRound()

	// Then: nothing moves
	require.ErrorIs(t, errPlay, apperror.ErrControllerClosed)
	require.ErrorIs(t, errStart, apperror.ErrControllerClosed)
	assert.Equal(t, 0, f.ctrl.Snapshot().Elapsed)
}

func TestRoundController_SharedLedger(t *testing.T) {
	t.Run("Win in one controller reaches the other", func(t *testing.T) {
		// Given: two controllers of the same session
		first := newFixture(t, RoundSettings{})
		events := &recorder{}
		second := NewRoundController(slog.New(slog.DiscardHandler), first.clock, first.ledger, firstEmptyBot{}, RoundSettings{}, events.listen)
		t.Cleanup(second.Close)

		// When: X wins in the first one
		first.play(t, 0, 1, 3, 4, 6)

		// Then: the second one pushes the new score without any action of its own
		require.Eventually(t, func() bool {
			all := events.all()
			return len(all) > 0 && all[len(all)-1].Scores == entity.Scores{X: 1}
		}, waitFor, pollTick)
	})

	t.Run("Reset outside any controller is pushed", func(t *testing.T) {
		// Given: a win recorded by someone else has been pushed
		f := newFixture(t, RoundSettings{})
		require.NoError(t, f.ledger.RecordWin(entity.PlayerO))
		require.Eventually(t, func() bool {
			all := f.events.all()
			return all[len(all)-1].Scores == entity.Scores{O: 1}
		}, waitFor, pollTick)

		// When: the ledger is reset directly, as the REST API does
		f.ledger.Reset()

		// Then: the zeroed score is pushed

		require.Eventually(t, func() bool {
			all := f.events.all()
			return all[len(all)-1].Scores == entity.Scores{}
		}, waitFor, pollTick)
	})

	t.Run("Closed controller stops listening", func(t *testing.T) {
		f := newFixture(t, RoundSettings{})
		f.ctrl.Close()
		before := f.events.count()

		require.NoError(t, f.ledger.RecordWin(entity.PlayerX))
		time.Sleep(20 * time.Millisecond)

		assert.Equal(t, before, f.events.count())
	})
}
