// Command analyze plays batches of Blockfall games with the autoplay planner
// and prints a summary of how the presets and weights perform: score and line
// statistics, survival, and a histogram of line clear sizes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/kamstrup/intmap"
	"github.com/mattn/go-runewidth"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/blockfall/game/autoplay"
	"github.com/wricardo/blockfall/game/engine"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"
)

// Options controls a batch run
type Options struct {
	Games        int
	Workers      int
	MaxPieces    int
	Seed         uint64
	Config       *engine.GameConfig
	Weights      autoplay.Weights
	ShowProgress bool
}

// GameResult is the outcome of one autoplayed game
type GameResult struct {
	Seed     uint64
	Score    int
	Lines    int
	Level    int
	Pieces   int
	GameOver bool
}

// ClearHistogram counts line clears by the number of rows removed at once
type ClearHistogram struct {
	counts *intmap.Map[int, int]
}

func newClearHistogram() *ClearHistogram {
	return &ClearHistogram{counts: intmap.New[int, int](4)}
}

func (h *ClearHistogram) add(rows, n int) {
	v, _ := h.counts.Get(rows)
	h.counts.Put(rows, v+n)
}

// Count returns how many clears removed exactly rows rows
func (h *ClearHistogram) Count(rows int) int {
	v, _ := h.counts.Get(rows)
	return v
}

func (h *ClearHistogram) merge(other *ClearHistogram) {
	for rows := 1; rows <= 4; rows++ {
		if n := other.Count(rows); n > 0 {
			h.add(rows, n)
		}
	}
}

// Summary aggregates a batch
type Summary struct {
	Games       int
	MeanScore   float64
	StdScore    float64
	MedianScore float64
	MaxScore    int
	MeanLines   float64
	MeanPieces  float64
	Survived    int
	Elapsed     time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newCommand(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Autoplay batches of games and summarize the results",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "games", Aliases: []string{"n"}, Value: 100, Usage: "number of games to play"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: runtime.NumCPU(), Usage: "parallel games"},
			&cli.IntFlag{Name: "pieces", Value: 500, Usage: "piece limit per game (0 plays until game over)"},
			&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "seed of the first game; game i uses seed+i"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "preset file (JSON or YAML); defaults to classic"},
			&cli.BoolFlag{Name: "progress", Value: true, Usage: "show a progress bar"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := engine.DefaultGameConfig()
			if path := cmd.String("config"); path != "" {
				loaded, err := engine.LoadGameConfig(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			opts := Options{
				Games:        cmd.Int("games"),
				Workers:      cmd.Int("workers"),
				MaxPieces:    cmd.Int("pieces"),
				Seed:         cmd.Uint64("seed"),
				Config:       cfg,
				Weights:      autoplay.DefaultWeights,
				ShowProgress: cmd.Bool("progress"),
			}

			start := time.Now()
			results, hist, err := runGames(ctx, opts)
			if err != nil {
				return err
			}
			summary := summarize(results)
			summary.Elapsed = time.Since(start)

			fmt.Fprint(out, fmtSummary(cfg.Name, summary))
			fmt.Fprint(out, fmtHistogram(hist))
			return nil
		},
	}
}

// runGames plays opts.Games games across opts.Workers goroutines
func runGames(ctx context.Context, opts Options) ([]GameResult, *ClearHistogram, error) {
	if opts.Games < 1 {
		return nil, nil, fmt.Errorf("games must be > 0")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Config == nil {
		opts.Config = engine.DefaultGameConfig()
	}

	jobs := make(chan int)
	results := make([]GameResult, opts.Games)
	hists := make([]*ClearHistogram, opts.Workers)
	errs := make([]error, opts.Workers)

	bar := pb.StartNew(opts.Games)
	if !opts.ShowProgress {
		bar.SetWriter(io.Discard)
	}

	var wg sync.WaitGroup
	wg.Add(opts.Workers)
	for w := 0; w < opts.Workers; w++ {
		hists[w] = newClearHistogram()
		go func(w int) {
			defer wg.Done()
			for i := range jobs {
				res, err := playGame(ctx, opts, opts.Seed+uint64(i), hists[w])
				if err != nil {
					errs[w] = err
					continue
				}
				results[i] = res
				bar.Increment()
			}
		}(w)
	}

feed:
	for i := 0; i < opts.Games; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	bar.Finish()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}

	hist := newClearHistogram()
	for _, h := range hists {
		hist.merge(h)
	}
	return results, hist, nil
}

// playGame autoplays one turn-based game with the given seed
func playGame(ctx context.Context, opts Options, seed uint64, hist *ClearHistogram) (GameResult, error) {
	cfg := *opts.Config
	cfg.Seed = &seed
	cfg.TurnBased = true

	e, err := engine.NewEngine(&cfg,
		engine.WithClock(engine.NewManualClock()),
		engine.WithEventSink(engine.EventSinkFunc(func(ev engine.Event) {
			if ev.Type == engine.EventLineClear {
				hist.add(ev.Rows, 1)
			}
		})),
	)
	if err != nil {
		return GameResult{}, err
	}
	e.Start()

	driver := autoplay.NewDriver(e, autoplay.NewPlanner(opts.Weights))
	pieces, err := driver.Play(ctx, opts.MaxPieces)
	if err != nil {
		return GameResult{}, err
	}

	snap := e.Snapshot()
	return GameResult{
		Seed:     seed,
		Score:    snap.Score,
		Lines:    snap.Lines,
		Level:    snap.Level,
		Pieces:   pieces,
		GameOver: snap.GameOver,
	}, nil
}

func summarize(results []GameResult) Summary {
	s := Summary{Games: len(results)}
	if len(results) == 0 {
		return s
	}

	scores := make([]float64, len(results))
	lines := make([]float64, len(results))
	pieces := make([]float64, len(results))
	for i, r := range results {
		scores[i] = float64(r.Score)
		lines[i] = float64(r.Lines)
		pieces[i] = float64(r.Pieces)
		if r.Score > s.MaxScore {
			s.MaxScore = r.Score
		}
		if !r.GameOver {
			s.Survived++
		}
	}

	s.MeanScore = stat.Mean(scores, nil)
	if len(scores) > 1 {
		s.StdScore = stat.StdDev(scores, nil)
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	s.MedianScore = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.MeanLines = stat.Mean(lines, nil)
	s.MeanPieces = stat.Mean(pieces, nil)
	return s
}

func fmtSummary(name string, s Summary) string {
	p := message.NewPrinter(language.English)
	msg := map[string]string{
		"Games":        p.Sprintf("%d", s.Games),
		"Mean Score":   p.Sprintf("%.1f", s.MeanScore),
		"Score STD":    p.Sprintf("%.1f", s.StdScore),
		"Median Score": p.Sprintf("%.0f", s.MedianScore),
		"Max Score":    p.Sprintf("%d", s.MaxScore),
		"Mean Lines":   p.Sprintf("%.2f", s.MeanLines),
		"Mean Pieces":  p.Sprintf("%.1f", s.MeanPieces),
		"Survived":     p.Sprintf("%d / %d", s.Survived, s.Games),
		"Elapsed":      s.Elapsed.Round(time.Millisecond).String(),
	}
	keys := []string{"Games", "Mean Score", "Score STD", "Median Score", "Max Score", "Mean Lines", "Mean Pieces", "Survived", "Elapsed"}
	return fmtTable(name, keys, msg)
}

func fmtHistogram(h *ClearHistogram) string {
	p := message.NewPrinter(language.English)
	labels := []string{"Single", "Double", "Triple", "Quad"}
	msg := make(map[string]string, len(labels))
	for i, label := range labels {
		msg[label] = p.Sprintf("%d", h.Count(i+1))
	}
	return fmtTable("Line Clears", labels, msg)
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	maxKeyLen := 0
	maxValLen := 0
	for _, k := range keys {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(msg[k]); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	totalInner := maxKeyLen + maxValLen + 1
	if w := runewidth.StringWidth(title); w > totalInner {
		maxValLen += w - totalInner
		totalInner = w
	}

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", totalInner) + "+\n"

	titleW := runewidth.StringWidth(title)
	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var b strings.Builder
	b.WriteString(top)
	b.WriteString("|" + blank(left) + title + blank(right) + "|\n")
	b.WriteString(divider)
	for _, k := range keys {
		v := msg[k]
		b.WriteString("| " + k + blank(maxKeyLen-2-runewidth.StringWidth(k)) + " | " + v + blank(maxValLen-2-runewidth.StringWidth(v)) + " |\n")
	}
	b.WriteString(divider)
	return b.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
