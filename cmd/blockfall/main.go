// Command blockfall plays Blockfall in the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/blockfall/game/engine"
)

// control is a key binding that is not a game command
type control int

const (
	controlNone control = iota
	controlQuit
	controlPause
	controlRestart
)

// keyBinding maps a key to a game command or a control
func keyBinding(ev *tcell.EventKey) (engine.Action, control) {
	switch ev.Key() {
	case tcell.KeyLeft:
		return engine.ActionMoveLeft, controlNone
	case tcell.KeyRight:
		return engine.ActionMoveRight, controlNone
	case tcell.KeyDown:
		return engine.ActionSoftDrop, controlNone
	case tcell.KeyUp:
		return engine.ActionRotate, controlNone
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return "", controlQuit
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'h', 'a':
			return engine.ActionMoveLeft, controlNone
		case 'l', 'd':
			return engine.ActionMoveRight, controlNone
		case 'j', 's':
			return engine.ActionSoftDrop, controlNone
		case 'k', 'w', 'x':
			return engine.ActionRotate, controlNone
		case ' ':
			return engine.ActionHardDrop, controlNone
		case 't':
			return engine.ActionTick, controlNone
		case 'p':
			return "", controlPause
		case 'r':
			return "", controlRestart
		case 'q':
			return "", controlQuit
		}
	}
	return "", controlNone
}

// Backend is the game the terminal plays: a local engine or a server session
type Backend interface {
	Snapshot() engine.Snapshot
	Apply(action engine.Action)
	Start()
	Stop()
	Restart()
	// Changes signals that a new snapshot is available
	Changes() <-chan struct{}
	Close() error
}

// handleKey applies a key press and reports whether the player quit
func handleKey(b Backend, ev *tcell.EventKey) bool {
	action, ctl := keyBinding(ev)
	switch ctl {
	case controlQuit:
		return true
	case controlRestart:
		b.Restart()
		return false
	case controlPause:
		if b.Snapshot().Paused {
			b.Start()
		} else {
			b.Stop()
		}
		return false
	}

	snap := b.Snapshot()
	if snap.Status == engine.StatusIdle {
		b.Start()
		return false
	}
	if action != "" && !snap.Paused {
		b.Apply(action)
	}
	return false
}

// localBackend plays an in-process engine
type localBackend struct {
	engine  *engine.GameEngine
	changes chan struct{}
}

// newLocalBackend creates an engine from config. Every change is signaled
// on Changes and every event goes to sink.
func newLocalBackend(config *engine.GameConfig, sink engine.EventSink) (*localBackend, error) {
	b := &localBackend{changes: make(chan struct{}, 1)}

	opts := []engine.Option{
		engine.WithChangeHandler(func(engine.Snapshot) {
			notify(b.changes)
		}),
	}
	if sink != nil {
		opts = append(opts, engine.WithEventSink(sink))
	}

	e, err := engine.NewEngine(config, opts...)
	if err != nil {
		return nil, err
	}
	b.engine = e
	return b, nil
}

func (b *localBackend) Snapshot() engine.Snapshot { return b.engine.Snapshot() }
func (b *localBackend) Apply(action engine.Action) { b.engine.Apply(action) }
func (b *localBackend) Start() { b.engine.Start() }
func (b *localBackend) Stop() { b.engine.Stop() }
func (b *localBackend) Restart() { b.engine.Restart() }
func (b *localBackend) Changes() <-chan struct{} { return b.changes }
func (b *localBackend) Close() error {
	b.engine.Stop()
	return nil
}

// notify does a non-blocking send on a one-slot channel
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Game ties a backend to a screen
type Game struct {
	screen  tcell.Screen
	view    *View
	backend Backend
}

// NewGame creates a game drawing backend on screen
func NewGame(screen tcell.Screen, backend Backend) *Game {
	return &Game{
		screen:  screen,
		view:    NewView(screen),
		backend: backend,
	}
}

// Run processes input and redraws until the player quits or ctx is done. The
// backend is closed on return.
func (g *Game) Run(ctx context.Context) error {
	defer g.backend.Close()

	events := make(chan tcell.Event)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	g.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-g.backend.Changes():
			g.draw()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if handleKey(g.backend, ev) {
					return nil
				}
				g.draw()
			case *tcell.EventResize:
				g.screen.Sync()
				g.draw()
			}
		}
	}
}

func (g *Game) draw() {
	snap := g.backend.Snapshot()
	g.view.Draw(&snap)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "blockfall",
		Usage: "Play Blockfall in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "preset file (JSON or YAML)"},
			&cli.Uint64Flag{Name: "seed", Usage: "fix the piece order"},
			&cli.BoolFlag{Name: "mute", Usage: "disable sound"},
			&cli.FloatFlag{Name: "volume", Value: 0.3, Usage: "sound volume between 0 and 1"},
			&cli.StringFlag{Name: "server", Usage: "play a session on a Blockfall server instead of locally (e.g. http://localhost:8080)", Sources: cli.EnvVars("BLOCKFALL_URL")},
			&cli.StringFlag{Name: "session", Usage: "server session to join; a new one is created when empty"},
			&cli.StringFlag{Name: "preset", Value: "classic", Usage: "server preset used when creating a session"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sounds := NewSounds(cmd.Float("volume"))
			if !cmd.Bool("mute") {
				if err := sounds.Initialize(); err != nil {
					fmt.Fprintf(os.Stderr, "Audio initialization failed: %v\n", err)
				}
			}
			defer sounds.Close()

			var (
				backend Backend
				err     error
			)
			if server := cmd.String("server"); server != "" {
				backend, err = dialRemote(ctx, server, cmd.String("session"), cmd.String("preset"), sounds)
			} else {
				backend, err = localFromFlags(cmd, sounds)
			}
			if err != nil {
				return err
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				backend.Close()
				return err
			}
			if err := screen.Init(); err != nil {
				backend.Close()
				return err
			}
			defer screen.Fini()

			return NewGame(screen, backend).Run(ctx)
		},
	}
}

func localFromFlags(cmd *cli.Command, sink engine.EventSink) (Backend, error) {
	config, err := loadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("seed") {
		seed := cmd.Uint64("seed")
		config.Seed = &seed
	}
	return newLocalBackend(config, sink)
}

// loadConfig reads a preset file, or returns the classic preset for ""
func loadConfig(path string) (*engine.GameConfig, error) {
	if path == "" {
		return engine.DefaultGameConfig(), nil
	}
	return engine.LoadGameConfig(path)
}
