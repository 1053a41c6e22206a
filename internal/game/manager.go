package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/logger"
	"github.com/redis/go-redis/v9"
)

// Seat is which player(s) a connected client may act for.
type Seat string

const (
	SeatPlayer1 Seat = Seat(Player1)
	SeatPlayer2 Seat = Seat(Player2)
	SeatBoth    Seat = "both" // hot-seat: one client plays both sides
)

// Allows reports whether the seat may act for player p.
func (s Seat) Allows(p Player) bool {
	return s == SeatBoth || Player(s) == p
}

func (s Seat) Valid() bool {
	return s == SeatPlayer1 || s == SeatPlayer2 || s == SeatBoth
}

// Listener receives everything the manager produces for presentation.
// Calls happen on the table's frame-loop goroutine or on a save goroutine and
// must not block.
type Listener interface {
	OnFrame(sessionID string, tick int, bodies []Body)
	OnOutcome(sessionID string, tr Transition, snapshot *Session)
	OnPersistError(sessionID string, err error)
}

type nopListener struct{}

func (nopListener) OnFrame(string, int, []Body)             {}
func (nopListener) OnOutcome(string, Transition, *Session) {}
func (nopListener) OnPersistError(string, error)           {}

// table is a live session plus its frame loop.
type table struct {
	mu           sync.Mutex
	session      *Session
	shot         *Shot
	cancel       context.CancelFunc
	broken       error
	lastActivity time.Time
	gen          uint64 // save generation the session belongs to
}

// saveLane orders writes for one session ID. It outlives the tables that use
// it, so a save queued by a replaced table can still be dropped.
type saveLane struct {
	mu        sync.Mutex
	gen       uint64
	lastSaved time.Time

	// guarded by GameManager.lanesMu
	pending int
	live    bool
}

// TableInfo is a read-only summary of a live table.
type TableInfo struct {
	ID            string         `json:"id"`
	Phase         Phase          `json:"phase"`
	CurrentPlayer Player         `json:"currentPlayer"`
	Scores        map[Player]int `json:"scores"`
	TurnNumber    int            `json:"turnNumber"`
	InFlight      bool           `json:"inFlight"`
	LastActivity  time.Time      `json:"lastActivity"`
}

// GameManager manages all live tables.
type GameManager struct {
	tables       map[string]*table
	store        Store
	rdb          *redis.Client // optional, idle tracking
	config       *config.Config
	board        Geometry
	sim          *Simulator
	turns        *TurnStateMachine
	tickInterval time.Duration
	saveTimeout  time.Duration
	listener     Listener
	now          func() time.Time
	loops        sync.WaitGroup
	saves        sync.WaitGroup
	mu           sync.RWMutex

	lanesMu sync.Mutex
	lanes   map[string]*saveLane
	lastGen uint64 // guarded by lanesMu
}

// NewGameManager creates a game manager backed by the given store. rdb may be
// nil, in which case idle tables are never unloaded.
func NewGameManager(store Store, rdb *redis.Client, cfg *config.Config) *GameManager {
	board := NewStandardBoard()

	hz := 60
	saveSecs := 5
	if cfg != nil {
		if cfg.TickRateHz > 0 {
			hz = cfg.TickRateHz
		}
		if cfg.SaveTimeoutSecs > 0 {
			saveSecs = cfg.SaveTimeoutSecs
		}
	}

	return &GameManager{
		tables:       make(map[string]*table),
		lanes:        make(map[string]*saveLane),
		store:        store,
		rdb:          rdb,
		config:       cfg,
		board:        board,
		sim:          NewSimulator(board),
		turns:        NewTurnStateMachine(board),
		tickInterval: time.Second / time.Duration(hz),
		saveTimeout:  time.Duration(saveSecs) * time.Second,
		listener:     nopListener{},
		now:          time.Now,
	}
}

// SetListener installs the output boundary. Pass nil to discard output.
func (gm *GameManager) SetListener(l Listener) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	if l == nil {
		l = nopListener{}
	}
	gm.listener = l
}

func (gm *GameManager) out() Listener {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return gm.listener
}

// Board returns the board geometry used by every table.
func (gm *GameManager) Board() Geometry {
	return gm.board
}

// NewGame replaces the session with a fresh game. If the store fails the new
// game is still live in memory and the error wraps ErrPersistFailed.
func (gm *GameManager) NewGame(ctx context.Context, id string) (*Session, error) {
	gm.mu.RLock()
	old := gm.tables[id]
	gm.mu.RUnlock()
	if old != nil {
		old.stop()
	}

	// Bumping the generation under the lane lock waits out a save that is
	// already writing and drops every save the old game still has queued.
	lane := gm.acquireLane(id)
	lane.mu.Lock()
	lane.gen = gm.nextGen()
	lane.lastSaved = time.Time{}
	gen := lane.gen
	s, err := gm.store.ResetGame(ctx, id)
	lane.mu.Unlock()
	defer gm.releaseLane(id, lane)

	var persistErr error
	if err != nil {
		logger.For("game").Warn().Err(err).Str("session", id).Msg("reset not persisted, starting game in memory")
		s = NewSession(id, gm.board, gm.now())
		persistErr = fmt.Errorf("%w: reset %s: %w", ErrPersistFailed, id, err)
	}

	t := &table{session: s.Clone(), lastActivity: gm.now(), gen: gen}

	gm.mu.Lock()
	replaced := gm.tables[id]
	gm.tables[id] = t
	gm.mu.Unlock()

	gm.setLaneLive(id, true)

	if replaced != nil && replaced != old {
		replaced.stop()
	}
	gm.touch(id)

	logger.For("game").Info().Str("session", id).Msg("new game started")
	return s.Clone(), persistErr
}

// Load returns a snapshot of the session, restoring it from the store when it
// is not live. A session that fails validation yields ErrCorruptSession; the
// only way forward for it is NewGame.
func (gm *GameManager) Load(ctx context.Context, id string) (*Session, error) {
	t, err := gm.table(ctx, id)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken != nil {
		return nil, t.broken
	}
	return t.session.Clone(), nil
}

func (gm *GameManager) table(ctx context.Context, id string) (*table, error) {
	gm.mu.RLock()
	t, ok := gm.tables[id]
	gm.mu.RUnlock()
	if ok {
		return t, nil
	}

	lane := gm.acquireLane(id)
	defer gm.releaseLane(id, lane)
	lane.mu.Lock()
	gen := lane.gen
	s, err := gm.store.GetCurrentGame(ctx, id)
	lane.mu.Unlock()
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if err := s.Validate(); err != nil {
		logger.For("game").Error().Err(err).Str("session", id).Msg("stored session failed validation")
		return nil, err
	}

	// A shot never survives a restart.
	if s.Won {
		s.Phase = PhaseWon
	} else {
		s.Phase = PhaseAwaitingShot
	}

	gm.mu.Lock()
	defer gm.mu.Unlock()
	if existing, ok := gm.tables[id]; ok {
		return existing, nil
	}
	t = &table{session: s, lastActivity: gm.now(), gen: gen}
	gm.tables[id] = t
	gm.setLaneLive(id, true)
	logger.For("game").Info().Str("session", id).Int("turn", s.TurnNumber).Msg("session restored")
	return t, nil
}

// Snapshot returns a copy of a live session without touching the store.
func (gm *GameManager) Snapshot(id string) (*Session, bool) {
	gm.mu.RLock()
	t, ok := gm.tables[id]
	gm.mu.RUnlock()
	if !ok {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.Clone(), true
}

// TakeShot starts a shot for the acting seat. It returns false without an
// error when the input is not acceptable right now: wrong phase, not the
// seat's turn, or a cancelled gesture.
func (gm *GameManager) TakeShot(ctx context.Context, id string, seat Seat, drag Vec2, power float64) (bool, error) {
	t, err := gm.table(ctx, id)
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.broken != nil {
		return false, t.broken
	}
	s := t.session
	if !gm.turns.CanShoot(s, s.CurrentPlayer) || !seat.Allows(s.CurrentPlayer) {
		return false, nil
	}

	striker, err := s.Striker()
	if err != nil {
		t.broken = fmt.Errorf("%w: %w", ErrCorruptSession, err)
		return false, t.broken
	}
	velocity, ok := BeginShot(striker.Position, drag, power)
	if !ok {
		return false, nil
	}

	shot, err := NewShot(gm.sim, s.CurrentPlayer, s.Bodies, velocity)
	if err != nil {
		t.broken = fmt.Errorf("%w: %w", ErrCorruptSession, err)
		return false, t.broken
	}
	if err := gm.turns.Begin(s); err != nil {
		return false, nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t.shot = shot
	t.cancel = cancel
	t.lastActivity = gm.now()

	gm.loops.Add(1)
	go gm.runShot(loopCtx, id, t, shot)

	logger.For("game").Debug().
		Str("session", id).
		Str("player", string(s.CurrentPlayer)).
		Float64("vx", velocity.X).
		Float64("vy", velocity.Y).
		Msg("shot started")
	return true, nil
}

// runShot ticks the shot once per frame until it rests or is cancelled.
func (gm *GameManager) runShot(ctx context.Context, id string, t *table, shot *Shot) {
	defer gm.loops.Done()

	ticker := time.NewTicker(gm.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			gm.abortShot(id, t, shot)
			return
		case <-ticker.C:
			bodies, done := shot.Tick()
			if ctx.Err() != nil {
				gm.abortShot(id, t, shot)
				return
			}
			gm.out().OnFrame(id, shot.Ticks(), bodies)
			if done {
				gm.finishShot(id, t, shot)
				return
			}
		}
	}
}

func (gm *GameManager) abortShot(id string, t *table, shot *Shot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.shot != shot {
		return
	}
	_ = gm.turns.Abort(t.session, shot.Before())
	t.shot = nil
	t.cancel = nil
	logger.For("game").Info().Str("session", id).Int("ticks", shot.Ticks()).Msg("shot cancelled")
}

func (gm *GameManager) finishShot(id string, t *table, shot *Shot) {
	t.mu.Lock()
	if t.shot != shot {
		t.mu.Unlock()
		return
	}
	out := shot.Outcome()
	tr, err := gm.turns.Apply(t.session, out, shot.Bodies(), gm.now())
	t.shot = nil
	t.cancel = nil
	t.lastActivity = gm.now()
	if err != nil {
		t.broken = fmt.Errorf("%w: %w", ErrCorruptSession, err)
		t.mu.Unlock()
		logger.For("game").Error().Err(err).Str("session", id).Msg("failed to apply shot outcome")
		return
	}
	snapshot := t.session.Clone()
	gen := t.gen
	// Registered before the phase is visible so Flush always covers it.
	gm.saves.Add(1)
	lane := gm.acquireLane(id)
	t.mu.Unlock()

	logger.For("game").Info().
		Str("session", id).
		Str("player", string(tr.Outcome.Player)).
		Strs("pocketed", tr.Outcome.PocketedIDs).
		Bool("striker_pocketed", tr.Outcome.StrikerPocketed).
		Bool("foul", tr.Outcome.Foul).
		Int("score", tr.ScoreApplied).
		Str("next", string(tr.NextPlayer)).
		Bool("won", tr.Won).
		Msg("shot resolved")

	gm.persistAsync(id, lane, gen, snapshot)
	gm.touch(id)
	gm.out().OnOutcome(id, tr, snapshot)
}

// persistAsync saves a snapshot without holding up the table. Older snapshots
// never overwrite newer ones, and nothing from a game that NewGame replaced is
// written. The caller has already added to gm.saves and acquired the lane.
func (gm *GameManager) persistAsync(id string, lane *saveLane, gen uint64, snapshot *Session) {
	go func() {
		defer gm.saves.Done()
		defer gm.releaseLane(id, lane)

		lane.mu.Lock()
		defer lane.mu.Unlock()
		if lane.gen != gen {
			logger.For("game").Debug().Str("session", id).Msg("dropping save from a replaced game")
			return
		}
		if snapshot.UpdatedAt.Before(lane.lastSaved) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), gm.saveTimeout)
		defer cancel()
		if _, err := gm.store.SaveGameState(ctx, snapshot); err != nil {
			logger.For("game").Warn().Err(err).Str("session", snapshot.ID).Msg("failed to persist game state")
			gm.out().OnPersistError(snapshot.ID, fmt.Errorf("%w: %w", ErrPersistFailed, err))
			return
		}
		lane.lastSaved = snapshot.UpdatedAt
	}()
}

// acquireLane returns the save lane for id, creating it if needed. Every call
// must be paired with releaseLane.
func (gm *GameManager) acquireLane(id string) *saveLane {
	gm.lanesMu.Lock()
	defer gm.lanesMu.Unlock()
	lane, ok := gm.lanes[id]
	if !ok {
		gm.lastGen++
		lane = &saveLane{gen: gm.lastGen}
		gm.lanes[id] = lane
	}
	lane.pending++
	return lane
}

// releaseLane forgets the lane once nothing uses it and no table is live.
func (gm *GameManager) releaseLane(id string, lane *saveLane) {
	gm.lanesMu.Lock()
	defer gm.lanesMu.Unlock()
	lane.pending--
	if lane.pending == 0 && !lane.live && gm.lanes[id] == lane {
		delete(gm.lanes, id)
	}
}

// setLaneLive records whether a table for id is installed.
func (gm *GameManager) setLaneLive(id string, live bool) {
	gm.lanesMu.Lock()
	defer gm.lanesMu.Unlock()
	lane, ok := gm.lanes[id]
	if !ok {
		return
	}
	lane.live = live
	if !live && lane.pending == 0 {
		delete(gm.lanes, id)
	}
}

func (gm *GameManager) nextGen() uint64 {
	gm.lanesMu.Lock()
	defer gm.lanesMu.Unlock()
	gm.lastGen++
	return gm.lastGen
}

// Adopt replaces a live table's session with one resolved on another
// instance. A local shot in flight is dropped without saving. inFlight marks a
// shot still running elsewhere, which keeps this copy from accepting input.
// It reports false when the table is not live here or the session is invalid.
func (gm *GameManager) Adopt(id string, s *Session, inFlight bool) bool {
	if s == nil || s.ID != id || s.Validate() != nil {
		return false
	}
	gm.mu.RLock()
	t, ok := gm.tables[id]
	gm.mu.RUnlock()
	if !ok {
		return false
	}

	adopted := s.Clone()
	switch {
	case adopted.Won:
		adopted.Phase = PhaseWon
	case inFlight:
		adopted.Phase = PhaseShotInFlight
	default:
		adopted.Phase = PhaseAwaitingShot
	}

	t.mu.Lock()
	cancel := t.cancel
	t.shot = nil
	t.cancel = nil
	t.session = adopted
	t.broken = nil
	t.lastActivity = gm.now()
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	logger.For("game").Debug().Str("session", id).Int("turn", adopted.TurnNumber).Bool("in_flight", inFlight).Msg("adopted remote state")
	return true
}

// MarkRemoteShot gates input on a live table while another instance resolves
// a shot. The next Adopt releases it.
func (gm *GameManager) MarkRemoteShot(id string) bool {
	gm.mu.RLock()
	t, ok := gm.tables[id]
	gm.mu.RUnlock()
	if !ok {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.shot != nil || t.session.Won {
		return false
	}
	t.session.Phase = PhaseShotInFlight
	t.lastActivity = gm.now()
	return true
}

// Unload drops a table from memory, cancelling any shot in flight. Nothing
// from a cancelled shot is persisted.
func (gm *GameManager) Unload(id string) bool {
	gm.mu.Lock()
	t, ok := gm.tables[id]
	delete(gm.tables, id)
	gm.mu.Unlock()
	if !ok {
		return false
	}
	t.stop()
	gm.setLaneLive(id, false)
	if gm.rdb != nil {
		gm.rdb.ZRem(context.Background(), idleSetKey, id)
	}
	logger.For("game").Info().Str("session", id).Msg("table unloaded")
	return true
}

func (t *table) stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// InFlight reports whether the table has a shot running.
func (gm *GameManager) InFlight(id string) bool {
	gm.mu.RLock()
	t, ok := gm.tables[id]
	gm.mu.RUnlock()
	if !ok {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shot != nil
}

// Tables lists every live table, ordered by ID.
func (gm *GameManager) Tables() []TableInfo {
	gm.mu.RLock()
	ids := make([]string, 0, len(gm.tables))
	tables := make(map[string]*table, len(gm.tables))
	for id, t := range gm.tables {
		ids = append(ids, id)
		tables[id] = t
	}
	gm.mu.RUnlock()
	sort.Strings(ids)

	infos := make([]TableInfo, 0, len(ids))
	for _, id := range ids {
		t := tables[id]
		t.mu.Lock()
		scores := map[Player]int{Player1: t.session.Scores[Player1], Player2: t.session.Scores[Player2]}
		infos = append(infos, TableInfo{
			ID:            id,
			Phase:         t.session.Phase,
			CurrentPlayer: t.session.CurrentPlayer,
			Scores:        scores,
			TurnNumber:    t.session.TurnNumber,
			InFlight:      t.shot != nil,
			LastActivity:  t.lastActivity,
		})
		t.mu.Unlock()
	}
	return infos
}

// Flush waits for every pending save to finish.
func (gm *GameManager) Flush() {
	gm.saves.Wait()
}

// Shutdown cancels all frame loops and waits for loops and saves to finish.
func (gm *GameManager) Shutdown() {
	gm.mu.RLock()
	for _, t := range gm.tables {
		t.stop()
	}
	gm.mu.RUnlock()
	gm.loops.Wait()
	gm.saves.Wait()
}
