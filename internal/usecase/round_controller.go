package usecase

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rocketscienceinc/tictactoe-round/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
	"github.com/rocketscienceinc/tictactoe-round/internal/tictactoe"
)

const (
	DefaultTickInterval  = time.Second
	DefaultOpponentDelay = 600 * time.Millisecond
	DefaultResetDelay    = 2 * time.Second
)

type scoreLedger interface {
	RecordWin(mark entity.Mark) error
	Reset()
	Scores() entity.Scores
	Subscribe(fn func()) (unsubscribe func())
}

type botService interface {
	ChooseCell(board entity.Board) (int, error)
}

type RoundSettings struct {
	Opponent      entity.Opponent
	ComputerMark  entity.Mark
	TickInterval  time.Duration
	OpponentDelay time.Duration
	ResetDelay    time.Duration
}

func (that RoundSettings) withDefaults() RoundSettings {
	if !that.Opponent.IsValid() {
		that.Opponent = entity.OpponentHuman
	}
	if !that.ComputerMark.IsValid() {
		that.ComputerMark = entity.PlayerO
	}
	if that.TickInterval <= 0 {
		that.TickInterval = DefaultTickInterval
	}
	if that.OpponentDelay <= 0 {
		that.OpponentDelay = DefaultOpponentDelay
	}
	if that.ResetDelay <= 0 {
		that.ResetDelay = DefaultResetDelay
	}

	return that
}

// Snapshot is everything a client needs to draw the board.
type Snapshot struct {
	Board        entity.Board    `json:"board"`
	Turn         entity.Mark     `json:"turn"`
	Outcome      entity.Outcome  `json:"outcome"`
	Status       string          `json:"status"`
	Elapsed      int             `json:"elapsed"`
	Scores       entity.Scores   `json:"scores"`
	Opponent     entity.Opponent `json:"opponent"`
	ComputerMark entity.Mark     `json:"computer_mark,omitempty"`
}

// RoundController drives rounds for one client: it owns the current round,
// the elapsed-time counter, the opponent and auto-reset timers.
//
// Every mutation and every timer callback runs under mu. Callbacks carry the
// roundSeq or version they were armed for and do nothing once it is stale.
// The listener is called under mu in mutation order and must not call back
// into the controller.
type RoundController struct {
	logger   *slog.Logger
	clock    clock.Clock
	ledger   scoreLedger
	bot      botService
	settings RoundSettings
	listener func(Snapshot)

	unsubscribe func()

	mu          sync.Mutex
	round       entity.Round
	elapsed     int
	winRecorded bool
	opponent    entity.Opponent
	closed      bool

	// roundSeq changes on every new round, version on every round state change.
	roundSeq uint64
	version  uint64

	tickTimer  *clock.Timer
	botTimer   *clock.Timer
	resetTimer *clock.Timer
}

func NewRoundController(
	logger *slog.Logger,
	clk clock.Clock,
	ledger scoreLedger,
	bot botService,
	settings RoundSettings,
	listener func(Snapshot),
) *RoundController {
	settings = settings.withDefaults()

	if listener == nil {
		listener = func(Snapshot) {}
	}

	ctrl := &RoundController{
		logger:   logger.With("component", "round_controller"),
		clock:    clk,
		ledger:   ledger,
		bot:      bot,
		settings: settings,
		listener: listener,
		round:    tictactoe.NewRound(),
		opponent: settings.Opponent,
	}

	// the ledger is shared by the session, so score changes made elsewhere
	// are pushed too; the ledger may publish while mu is held
	ctrl.unsubscribe = ledger.Subscribe(func() {
		go ctrl.refresh()
	})

	return ctrl
}

// StartRound discards the current round and begins a new one.
func (that *RoundController) StartRound() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return apperror.ErrControllerClosed
	}

	that.startRoundLocked()

	return nil
}

// RequestMove applies mark at cell. Engine rejections are returned as is and
// leave the controller untouched.
func (that *RoundController) RequestMove(cell int, mark entity.Mark) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return apperror.ErrControllerClosed
	}

	return that.requestMoveLocked(cell, mark)
}

// PlayCell is a click from the client: it plays for whoever is to move unless
// that is the computer.
func (that *RoundController) PlayCell(cell int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return apperror.ErrControllerClosed
	}

	if that.opponent == entity.OpponentComputer &&
		that.round.Turn == that.settings.ComputerMark &&
		!tictactoe.Outcome(that.round).IsDecided() {
		return apperror.ErrNotYourTurn
	}

	return that.requestMoveLocked(cell, that.round.Turn)
}

// SetOpponent switches between hot-seat and computer play and starts a new round.
func (that *RoundController) SetOpponent(mode entity.Opponent) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidOpponent, mode)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return apperror.ErrControllerClosed
	}

	that.opponent = mode
	that.startRoundLocked()

	return nil
}

// ResetScores clears the ledger without touching the round.
func (that *RoundController) ResetScores() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return apperror.ErrControllerClosed
	}

	that.ledger.Reset()
	that.notifyLocked()

	return nil
}

func (that *RoundController) Snapshot() Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.snapshotLocked()
}

// Close cancels every timer. Later calls fail and pending callbacks do nothing.
func (that *RoundController) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	that.closed = true
	that.stopTimersLocked()
	that.unsubscribe()
}

// refresh pushes the current state after a change the controller did not make.
func (that *RoundController) refresh() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	that.notifyLocked()
}

func (that *RoundController) startRoundLocked() {
	that.stopTimersLocked()

	that.round = tictactoe.NewRound()
	that.elapsed = 0
	that.winRecorded = false
	that.roundSeq++
	that.version++

	that.armTickLocked()
	that.scheduleOpponentLocked()
	that.notifyLocked()

	that.logger.Debug("round started", "round", that.roundSeq, "opponent", that.opponent)
}

func (that *RoundController) requestMoveLocked(cell int, mark entity.Mark) error {
	next, err := tictactoe.ApplyMove(that.round, cell, mark)
	if err != nil {
		return err
	}

	that.round = next
	that.version++
	stopTimer(&that.botTimer)

	if tictactoe.Outcome(next).IsDecided() {
		that.finishRoundLocked()
	} else {
		that.scheduleOpponentLocked()
	}

	that.notifyLocked()

	return nil
}

// finishRoundLocked runs the end-of-round handling at most once per round.
func (that *RoundController) finishRoundLocked() {
	outcome := tictactoe.Outcome(that.round)
	if !outcome.IsDecided() || that.winRecorded {
		return
	}

	stopTimer(&that.tickTimer)

	if outcome.Status == entity.StatusWin {
		if err := that.ledger.RecordWin(outcome.Winner); err != nil {
			that.logger.Error("failed to record win", "winner", outcome.Winner, "error", err)
		}
	}

	that.winRecorded = true

	seq := that.roundSeq
	that.resetTimer = that.clock.AfterFunc(that.settings.ResetDelay, func() {
		that.autoReset(seq)
	})

	that.logger.Info("round finished", "round", seq, "outcome", outcome.Status, "winner", outcome.Winner, "elapsed", that.elapsed)
}

func (that *RoundController) armTickLocked() {
	seq := that.roundSeq
	that.tickTimer = that.clock.AfterFunc(that.settings.TickInterval, func() {
		that.tick(seq)
	})
}

func (that *RoundController) tick(seq uint64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed || seq != that.roundSeq || tictactoe.Outcome(that.round).IsDecided() {
		return
	}

	that.elapsed++
	that.armTickLocked()
	that.notifyLocked()
}

func (that *RoundController) autoReset(seq uint64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed || seq != that.roundSeq {
		return
	}

	that.startRoundLocked()
}

func (that *RoundController) scheduleOpponentLocked() {
	if that.opponent != entity.OpponentComputer || that.round.Turn != that.settings.ComputerMark {
		return
	}

	if tictactoe.Outcome(that.round).IsDecided() || len(tictactoe.EmptyCells(that.round.Board)) == 0 {
		return
	}

	version := that.version
	that.botTimer = that.clock.AfterFunc(that.settings.OpponentDelay, func() {
		that.opponentMove(version)
	})
}

func (that *RoundController) opponentMove(version uint64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed || version != that.version {
		return
	}

	cell, err := that.bot.ChooseCell(that.round.Board)
	if err != nil {
		that.logger.Error("opponent failed to choose a cell", "error", err)
		return
	}

	if err = that.requestMoveLocked(cell, that.settings.ComputerMark); err != nil {
		that.logger.Error("opponent move rejected", "cell", cell, "error", err)
	}
}

func (that *RoundController) stopTimersLocked() {
	stopTimer(&that.tickTimer)
	stopTimer(&that.botTimer)
	stopTimer(&that.resetTimer)
}

func (that *RoundController) notifyLocked() {
	that.listener(that.snapshotLocked())
}

func (that *RoundController) snapshotLocked() Snapshot {
	outcome := tictactoe.Outcome(that.round)

	snapshot := Snapshot{
		Board:    that.round.Board,
		Turn:     that.round.Turn,
		Outcome:  outcome,
		Status:   entity.StatusText(that.round.Turn, outcome),
		Elapsed:  that.elapsed,
		Scores:   that.ledger.Scores(),
		Opponent: that.opponent,
	}

	if that.opponent == entity.OpponentComputer {
		snapshot.ComputerMark = that.settings.ComputerMark
	}

	return snapshot
}

func stopTimer(timer **clock.Timer) {
	if *timer != nil {
		(*timer).Stop()
		*timer = nil
	}
}
