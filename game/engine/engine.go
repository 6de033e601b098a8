package engine

import (
	"sync"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Lifecycle
	Start() bool
	Stop() bool
	Restart()

	// Player commands
	MoveLeft() bool
	MoveRight() bool
	SoftDrop() bool
	HardDrop() bool
	Rotate() bool
	Tick() bool
	Apply(action Action) ([]Event, bool)

	// Queries
	Snapshot() Snapshot
	Status() Status
	Score() int
	Lines() int
	Level() int
	IsGameOver() bool
	Next() Kind
	GravityInterval() time.Duration
	FormattedInterval() string
	GetConfig() *GameConfig
}

// kickOffsets are tried in order when rotating; the first placeable one wins
var kickOffsets = [...]GridPoint{{0, 0}, {1, 0}, {-1, 0}, {2, 0}, {-2, 0}, {0, -1}}

// GameEngine implements the Engine interface. All mutations happen under a
// single mutex; events and change notifications are delivered after it has
// been released, in the order the mutations were committed.
type GameEngine struct {
	mu sync.Mutex

	// delivery turns: each notifying operation draws a ticket under mu and
	// waits for delivered to reach the previous one
	deliverMu   sync.Mutex
	deliverCond *sync.Cond
	tickets     uint64
	delivered   uint64

	config   *GameConfig
	source   KindSource
	clock    GravityClock
	sink     EventSink
	onChange func(Snapshot)

	status   Status
	grid     Grid
	piece    Piece
	origin   GridPoint
	hasPiece bool
	next     Kind
	score    int
	lines    int
	level    int

	gravityOn bool
	clockGen  uint64
	seq       uint64
	pending   []Event
}

// Option configures a GameEngine
type Option func(*GameEngine)

// WithKindSource overrides the piece source built from the config
func WithKindSource(source KindSource) Option {
	return func(e *GameEngine) {
		e.source = source
	}
}

// WithClock overrides the gravity clock
func WithClock(clock GravityClock) Option {
	return func(e *GameEngine) {
		e.clock = clock
	}
}

// WithEventSink sets the receiver of engine events. The sink must not issue
// commands on the same engine.
func WithEventSink(sink EventSink) Option {
	return func(e *GameEngine) {
		e.sink = sink
	}
}

// WithChangeHandler registers a callback that receives a fresh snapshot after
// every state change. Like an EventSink it may query the engine but must not
// issue commands on it.
func WithChangeHandler(fn func(Snapshot)) Option {
	return func(e *GameEngine) {
		e.onChange = fn
	}
}

// NewEngine creates a new game engine with the provided configuration. The
// engine starts Idle.
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config: config,
		status: StatusIdle,
		level:  1,
	}
	e.deliverCond = sync.NewCond(&e.deliverMu)
	for _, opt := range opts {
		opt(e)
	}

	if e.source == nil {
		e.source = config.NewKindSource()
	}
	if e.clock == nil {
		if config.TurnBased {
			e.clock = NewManualClock()
		} else {
			e.clock = NewTimerClock()
		}
	}
	if e.sink == nil {
		e.sink = discardSink{}
	}
	return e, nil
}

// NewEngineWithDefaults creates a new game engine with the classic preset
func NewEngineWithDefaults(opts ...Option) *GameEngine {
	e, err := NewEngine(DefaultGameConfig(), opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// SpawnOrigin returns where a new piece of kind k enters the board
func SpawnOrigin(k Kind) GridPoint {
	return GridPoint{X: (Columns - k.FrameWidth()) / 2, Y: 0}
}

// Start begins a game from Idle, or resumes gravity halted by Stop
func (e *GameEngine) Start() bool {
	_, ok := e.run(func() bool {
		switch e.status {
		case StatusIdle:
			e.resetLocked()
			return true
		case StatusRunning:
			if e.gravityOn {
				return false
			}
			e.armGravity()
			return true
		default:
			return false
		}
	})
	return ok
}

// Stop halts gravity without touching the game state
func (e *GameEngine) Stop() bool {
	_, ok := e.run(func() bool {
		if !e.gravityOn {
			return false
		}
		e.haltGravity()
		return true
	})
	return ok
}

// Restart discards the current game and begins a new one
func (e *GameEngine) Restart() {
	e.run(func() bool {
		e.resetLocked()
		return true
	})
}

// MoveLeft shifts the active piece one column left
func (e *GameEngine) MoveLeft() bool {
	_, ok := e.Apply(ActionMoveLeft)
	return ok
}

// MoveRight shifts the active piece one column right
func (e *GameEngine) MoveRight() bool {
	_, ok := e.Apply(ActionMoveRight)
	return ok
}

// SoftDrop moves the active piece down one row for a point, or locks it
func (e *GameEngine) SoftDrop() bool {
	_, ok := e.Apply(ActionSoftDrop)
	return ok
}

// HardDrop drops the active piece to its landing row and locks it
func (e *GameEngine) HardDrop() bool {
	_, ok := e.Apply(ActionHardDrop)
	return ok
}

// Rotate advances the active piece's rotation, trying each kick offset
func (e *GameEngine) Rotate() bool {
	_, ok := e.Apply(ActionRotate)
	return ok
}

// Tick performs one gravity step
func (e *GameEngine) Tick() bool {
	_, ok := e.Apply(ActionTick)
	return ok
}

// Apply executes action and returns the events it produced. Actions are
// ignored unless a game is running with an active piece.
func (e *GameEngine) Apply(action Action) ([]Event, bool) {
	return e.run(func() bool {
		if e.status != StatusRunning || !e.hasPiece {
			return false
		}
		switch action {
		case ActionMoveLeft:
			return e.shiftLocked(-1)
		case ActionMoveRight:
			return e.shiftLocked(1)
		case ActionSoftDrop:
			return e.softDropLocked()
		case ActionHardDrop:
			return e.hardDropLocked()
		case ActionRotate:
			return e.rotateLocked()
		case ActionTick:
			return e.stepLocked()
		default:
			return false
		}
	})
}

// run executes op under the lock and then delivers what it produced.
// Deliveries from concurrent operations never overlap and follow commit order.
func (e *GameEngine) run(op func() bool) ([]Event, bool) {
	e.mu.Lock()
	changed := op()
	events := e.pending
	e.pending = nil
	if changed {
		e.seq++
	}
	for i := range events {
		events[i].Seq = e.seq
	}
	notify := changed && e.onChange != nil
	var snap Snapshot
	if notify {
		snap = e.snapshotLocked()
	}
	var ticket uint64
	if notify || len(events) > 0 {
		e.tickets++
		ticket = e.tickets
	}
	e.mu.Unlock()

	if ticket != 0 {
		e.deliver(ticket, events, notify, snap)
	}
	return events, changed
}

func (e *GameEngine) deliver(ticket uint64, events []Event, notify bool, snap Snapshot) {
	e.deliverMu.Lock()
	for e.delivered != ticket-1 {
		e.deliverCond.Wait()
	}
	e.deliverMu.Unlock()

	defer func() {
		e.deliverMu.Lock()
		e.delivered = ticket
		e.deliverCond.Broadcast()
		e.deliverMu.Unlock()
	}()

	for _, ev := range events {
		e.sink.HandleEvent(ev)
	}
	if notify {
		e.onChange(snap)
	}
}

func (e *GameEngine) emit(ev Event) {
	e.pending = append(e.pending, ev)
}

func (e *GameEngine) resetLocked() {
	e.haltGravity()
	if r, ok := e.source.(interface{ Reset() }); ok {
		r.Reset()
	}

	e.grid = Grid{}
	e.score = 0
	e.lines = 0
	e.level = 1
	e.hasPiece = false
	e.status = StatusRunning
	e.next = e.source.Next()

	e.spawnLocked()
	if e.status == StatusRunning {
		e.armGravity()
	}
}

func (e *GameEngine) spawnLocked() {
	kind := e.next
	e.next = e.source.Next()

	piece := NewPiece(kind)
	origin := SpawnOrigin(kind)
	if !e.grid.CanPlace(piece, origin) {
		e.hasPiece = false
		e.gameOverLocked()
		return
	}

	e.piece = piece
	e.origin = origin
	e.hasPiece = true
	e.emit(Event{Type: EventSpawn, Kind: kind, Origin: origin})
}

func (e *GameEngine) shiftLocked(dx int) bool {
	target := e.origin.Add(GridPoint{X: dx})
	if !e.grid.CanPlace(e.piece, target) {
		return false
	}
	e.origin = target
	e.emit(Event{Type: EventMove, Kind: e.piece.Kind, Origin: target})
	return true
}

func (e *GameEngine) softDropLocked() bool {
	target := e.origin.Add(GridPoint{Y: 1})
	if !e.grid.CanPlace(e.piece, target) {
		e.lockLocked()
		return true
	}
	e.origin = target
	e.score += softDropPointsPerRow
	e.emit(Event{Type: EventSoftDrop, Kind: e.piece.Kind, Origin: target})
	return true
}

func (e *GameEngine) hardDropLocked() bool {
	distance := e.grid.DropDistance(e.piece, e.origin)
	e.origin = e.origin.Add(GridPoint{Y: distance})
	e.score += distance * hardDropPointsPerRow
	e.emit(Event{Type: EventHardDrop, Kind: e.piece.Kind, Origin: e.origin, Distance: distance})
	e.lockLocked()
	return true
}

func (e *GameEngine) rotateLocked() bool {
	rotated := e.piece.Rotated()
	for _, kick := range kickOffsets {
		target := e.origin.Add(kick)
		if e.grid.CanPlace(rotated, target) {
			e.piece = rotated
			e.origin = target
			e.emit(Event{Type: EventRotate, Kind: rotated.Kind, Origin: target})
			return true
		}
	}
	return false
}

// stepLocked is the score-free gravity step
func (e *GameEngine) stepLocked() bool {
	target := e.origin.Add(GridPoint{Y: 1})
	if !e.grid.CanPlace(e.piece, target) {
		e.lockLocked()
		return true
	}
	e.origin = target
	return true
}

func (e *GameEngine) lockLocked() {
	piece, origin := e.piece, e.origin
	e.hasPiece = false

	overflow := e.grid.Lock(piece, origin)
	e.emit(Event{Type: EventLock, Kind: piece.Kind, Origin: origin})
	if overflow {
		e.gameOverLocked()
		return
	}

	if n := e.grid.ClearCompletedRows(); n > 0 {
		e.applyLineClear(n)
	}
	e.spawnLocked()
}

func (e *GameEngine) applyLineClear(n int) {
	e.lines += n
	e.score += LineClearBonus(n) * e.level

	level := LevelForLines(e.lines)
	e.emit(Event{Type: EventLineClear, Rows: n, Level: level})
	if level == e.level {
		return
	}
	e.level = level
	if e.gravityOn {
		e.armGravity()
	}
}

func (e *GameEngine) gameOverLocked() {
	e.status = StatusGameOver
	e.haltGravity()
	e.emit(Event{Type: EventGameOver})
}

// armGravity (re)schedules the clock at the current level's interval. Ticks
// from earlier schedules are dropped by the generation check.
func (e *GameEngine) armGravity() {
	e.clockGen++
	gen := e.clockGen
	e.gravityOn = true
	e.clock.Schedule(GravityInterval(e.level), func() {
		e.gravityTick(gen)
	})
}

func (e *GameEngine) haltGravity() {
	e.clockGen++
	e.gravityOn = false
	e.clock.Stop()
}

func (e *GameEngine) gravityTick(gen uint64) {
	e.run(func() bool {
		if gen != e.clockGen || e.status != StatusRunning || !e.hasPiece {
			return false
		}
		return e.stepLocked()
	})
}

// Snapshot returns the render projection of the current state
func (e *GameEngine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *GameEngine) snapshotLocked() Snapshot {
	s := Snapshot{
		Status:          e.status,
		Score:           e.score,
		Lines:           e.lines,
		Level:           e.level,
		GameOver:        e.status == StatusGameOver,
		Paused:          e.status == StatusRunning && !e.gravityOn,
		Next:            e.next,
		GravityInterval: FormatInterval(GravityInterval(e.level)),
		Seq:             e.seq,
	}

	for y := 0; y < Rows; y++ {
		for x := 0; x < Columns; x++ {
			if k := e.grid.cells[y][x]; k != KindNone {
				s.Cells[y][x] = CellState{Type: CellLocked, Kind: k}
			} else {
				s.Cells[y][x] = CellState{Type: CellEmpty}
			}
		}
	}

	if !e.hasPiece {
		return s
	}

	landing := e.origin.Add(GridPoint{Y: e.grid.DropDistance(e.piece, e.origin)})
	for _, c := range e.piece.CellsAt(landing) {
		if InBounds(c) && s.Cells[c.Y][c.X].Type == CellEmpty {
			s.Cells[c.Y][c.X] = CellState{Type: CellGhost, Kind: e.piece.Kind}
		}
	}
	for _, c := range e.piece.CellsAt(e.origin) {
		if InBounds(c) {
			s.Cells[c.Y][c.X] = CellState{Type: CellActive, Kind: e.piece.Kind}
		}
	}
	s.Active = &ActivePiece{Kind: e.piece.Kind, Rotation: e.piece.Rotation, Origin: e.origin}
	return s
}

// Status returns the lifecycle state
func (e *GameEngine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Score returns the current score
func (e *GameEngine) Score() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score
}

// Lines returns the total number of cleared rows
func (e *GameEngine) Lines() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lines
}

// Level returns the current level
func (e *GameEngine) Level() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

// IsGameOver reports whether the game has ended
func (e *GameEngine) IsGameOver() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status == StatusGameOver
}

// Next returns the upcoming kind
func (e *GameEngine) Next() Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.next
}

// GravityInterval returns the gravity interval for the current level
func (e *GameEngine) GravityInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return GravityInterval(e.level)
}

// FormattedInterval returns the gravity interval formatted for display
func (e *GameEngine) FormattedInterval() string {
	return FormatInterval(e.GravityInterval())
}

// GravityActive reports whether the clock is currently armed
func (e *GameEngine) GravityActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gravityOn
}

// GetConfig returns the preset the engine was built from
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}
