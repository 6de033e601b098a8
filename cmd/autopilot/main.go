// Command autopilot plays a Blockfall session over the REST API. It plans
// each piece with the autoplay planner and sends the placement as one bulk
// command, restarting the game until it clears the target number of lines or
// runs out of attempts.
//
// The session id is saved to a file so later runs keep playing the same
// session.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/blockfall/game/autoplay"
	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/logging"
)

// Options controls an autopilot run
type Options struct {
	ConfigID     string
	Continue     string
	SessionFile  string
	MaxPieces    int
	MaxAttempts  int
	TargetLines  int
	Delay        time.Duration
	Weights      autoplay.Weights
	ProgressEach int
}

// Attempt is the outcome of one game
type Attempt struct {
	Number int
	Pieces int
	Score  int
	Lines  int
	Level  int
	Over   bool
}

// Report summarizes a run
type Report struct {
	SessionID string
	Attempts  []Attempt
	Won       bool
}

// Best returns the attempt with the most lines
func (r *Report) Best() (Attempt, bool) {
	if len(r.Attempts) == 0 {
		return Attempt{}, false
	}
	best := r.Attempts[0]
	for _, a := range r.Attempts[1:] {
		if a.Lines > best.Lines || (a.Lines == best.Lines && a.Score > best.Score) {
			best = a
		}
	}
	return best, true
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
		Name:  "autopilot",
		Usage: "Play a Blockfall session through the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("BLOCKFALL_URL")},
			&cli.StringFlag{Name: "config", Value: "agent", Usage: "preset used when creating a session"},
			&cli.StringFlag{Name: "continue", Usage: "resume playing an existing session by ID"},
			&cli.StringFlag{Name: "session-file", Value: ".session", Usage: "file remembering the session id (empty disables)"},
			&cli.IntFlag{Name: "max-pieces", Value: 500, Usage: "maximum pieces per attempt"},
			&cli.IntFlag{Name: "max-attempts", Value: 10, Usage: "maximum attempts before giving up"},
			&cli.IntFlag{Name: "target-lines", Value: 40, Usage: "lines to clear to win"},
			&cli.DurationFlag{Name: "delay", Usage: "pause between pieces"},
			&cli.StringFlag{Name: "log", Value: "dev", Usage: "log mode: dev, prod or silent"},
			&cli.BoolFlag{Name: "v", Usage: "log progress every 25 pieces"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mode, err := logging.ParseMode(cmd.String("log"))
			if err != nil {
				return err
			}
			logger := logging.New(mode, os.Stderr)

			opts := Options{
				ConfigID:    cmd.String("config"),
				Continue:    cmd.String("continue"),
				SessionFile: cmd.String("session-file"),
				MaxPieces:   cmd.Int("max-pieces"),
				MaxAttempts: cmd.Int("max-attempts"),
				TargetLines: cmd.Int("target-lines"),
				Delay:       cmd.Duration("delay"),
				Weights:     autoplay.DefaultWeights,
			}
			if cmd.Bool("v") {
				opts.ProgressEach = 25
			}

			logger.Info("connecting to game server", "url", cmd.String("url"))
			report, err := run(ctx, NewClient(cmd.String("url")), opts, logger)
			if err != nil {
				return err
			}
			if !report.Won {
				return fmt.Errorf("did not clear %d lines after %d attempts (session %s)", opts.TargetLines, len(report.Attempts), report.SessionID)
			}
			return nil
		},
	}
}

// run binds to a session, then plays attempts until one reaches the target
func run(ctx context.Context, client *Client, opts Options, logger *slog.Logger) (*Report, error) {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	turnBased, err := bindSession(ctx, client, opts, logger)
	if err != nil {
		return nil, err
	}
	if !turnBased {
		logger.Warn("session is real-time; gravity may move pieces between planning and playing")
	}

	report := &Report{SessionID: client.SessionID()}
	planner := autoplay.NewPlanner(opts.Weights)

	for n := 1; n <= opts.MaxAttempts; n++ {
		if _, err := client.Restart(ctx); err != nil {
			return report, err
		}
		logger.Info("attempt started", "attempt", n, "of", opts.MaxAttempts, "session", client.SessionID())

		attempt, err := playAttempt(ctx, client, planner, opts, logger)
		attempt.Number = n
		if err != nil {
			return report, err
		}
		report.Attempts = append(report.Attempts, attempt)

		logger.Info("attempt finished", "attempt", n, "pieces", attempt.Pieces,
			"score", attempt.Score, "lines", attempt.Lines, "level", attempt.Level, "game_over", attempt.Over)

		if attempt.Lines >= opts.TargetLines {
			report.Won = true
			logger.Info("target reached", "attempt", n, "lines", attempt.Lines, "session", client.SessionID())
			return report, nil
		}
	}

	if best, ok := report.Best(); ok {
		logger.Warn("target not reached", "attempts", len(report.Attempts), "best_lines", best.Lines, "best_score", best.Score)
	}
	return report, nil
}

// bindSession resumes the requested or remembered session, falling back to a
// new one. It reports whether the session is turn-based.
func bindSession(ctx context.Context, client *Client, opts Options, logger *slog.Logger) (bool, error) {
	savedID := opts.Continue
	if savedID == "" && opts.SessionFile != "" {
		if data, err := os.ReadFile(opts.SessionFile); err == nil {
			savedID = string(bytes.TrimSpace(data))
		}
	}

	if savedID != "" {
		info, err := client.Resume(ctx, savedID)
		if err == nil {
			logger.Info("session resumed", "session", info.ID, "config", info.ConfigName, "score", info.Score)
			return info.TurnBased, nil
		}
		logger.Warn("failed to resume session (may be expired), creating a new one", "session", savedID, "error", err)
	}

	info, err := client.CreateSession(ctx, opts.ConfigID)
	if err != nil {
		return false, err
	}
	logger.Info("session created", "session", info.ID, "config", info.ConfigName, "turn_based", info.TurnBased)

	if opts.SessionFile != "" {
		if err := os.WriteFile(opts.SessionFile, []byte(info.ID), 0644); err != nil {
			logger.Warn("failed to save session id", "file", opts.SessionFile, "error", err)
		}
	}
	return info.TurnBased, nil
}

// playAttempt places pieces until the game ends, the target is reached or
// the piece limit runs out
func playAttempt(ctx context.Context, client *Client, planner *autoplay.Planner, opts Options, logger *slog.Logger) (Attempt, error) {
	var attempt Attempt

	snap, err := client.Snapshot(ctx)
	if err != nil {
		return attempt, err
	}
	if snap.Status == engine.StatusIdle {
		result, err := client.Start(ctx)
		if err != nil {
			return attempt, err
		}
		snap = result.Snapshot
	}

	for !snap.GameOver && snap.Lines < opts.TargetLines && (opts.MaxPieces <= 0 || attempt.Pieces < opts.MaxPieces) {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}

		placement, ok := planner.PlanSnapshot(snap)
		if !ok {
			if snap.Active == nil {
				break
			}
			placement.Commands = []engine.Action{engine.ActionHardDrop}
		}

		result, err := client.BulkCommands(ctx, autoplay.CommandNames(placement.Commands))
		if err != nil {
			return attempt, err
		}
		if result.Snapshot == nil {
			return attempt, errors.New("bulk commands: response has no snapshot")
		}
		snap = result.Snapshot
		attempt.Pieces++

		if opts.ProgressEach > 0 && attempt.Pieces%opts.ProgressEach == 0 {
			logger.Info("progress", "pieces", attempt.Pieces, "score", snap.Score, "lines", snap.Lines, "level", snap.Level)
		}
		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return attempt, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}

	attempt.Score = snap.Score
	attempt.Lines = snap.Lines
	attempt.Level = snap.Level
	attempt.Over = snap.GameOver
	return attempt, nil
}
