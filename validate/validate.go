// Command validate checks the Blockfall presets in a configs directory. For
// each JSON or YAML file it checks:
//   - the file decodes and has a name and description
//   - the scripted sequence uses only the seven shape letters and fits the limit
//   - no two files share a preset id
//   - the scripted opening can be played by the autoplay planner without
//     topping out (a dry run on a turn-based engine)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/blockfall/game/autoplay"
	"github.com/wricardo/blockfall/game/engine"
	"gopkg.in/yaml.v3"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single preset file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config engine.GameConfig
	switch engine.FormatForPath(filePath) {
	case "yaml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			result.fail("Invalid YAML: %v", err)
			return result
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			result.fail("Invalid JSON: %v", err)
			return result
		}
	}

	if strings.TrimSpace(config.Name) == "" {
		result.fail("Name is required")
	}
	if strings.TrimSpace(config.Description) == "" {
		result.fail("Description is required")
	}

	kinds, err := engine.ParseSequence(config.Sequence)
	if err != nil {
		result.fail("Invalid sequence: %v", err)
	} else if len(kinds) > engine.MaxSequenceLength {
		result.fail("Sequence has %d pieces, at most %d allowed", len(kinds), engine.MaxSequenceLength)
	}

	if !result.Valid {
		return result
	}

	if config.TurnBased {
		result.info("Turn-based: gravity advances on tick")
	} else {
		result.info("Real-time gravity")
	}
	if config.Seed != nil {
		result.info("Seeded with %d", *config.Seed)
	}
	if len(kinds) > 0 {
		dry := dryRunOpening(&config, len(kinds))
		if dry.Err != nil {
			result.fail("Dry run failed: %v", dry.Err)
		} else if dry.GameOver {
			result.fail("Scripted opening tops out after %d of %d pieces", dry.Pieces, len(kinds))
		} else {
			result.info("Scripted opening of %d pieces plays cleanly (%d lines, score %d)", len(kinds), dry.Lines, dry.Score)
		}
	}

	return result
}

// DryRun is the outcome of autoplaying a preset's opening
type DryRun struct {
	Pieces   int
	Lines    int
	Score    int
	GameOver bool
	Err      error
}

// dryRunOpening autoplays the first pieces of a preset on a turn-based engine
func dryRunOpening(config *engine.GameConfig, pieces int) DryRun {
	cfg := *config
	cfg.TurnBased = true

	e, err := engine.NewEngine(&cfg, engine.WithClock(engine.NewManualClock()))
	if err != nil {
		return DryRun{Err: err}
	}
	e.Start()

	played, err := autoplay.NewDriver(e, nil).Play(context.Background(), pieces)
	if err != nil {
		return DryRun{Err: err}
	}

	snap := e.Snapshot()
	return DryRun{Pieces: played, Lines: snap.Lines, Score: snap.Score, GameOver: snap.GameOver}
}

// presetFiles lists the preset files in dir, sorted
func presetFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// validateFiles validates every file and flags files that share a preset id
func validateFiles(files []string) []ValidationResult {
	results := make([]ValidationResult, 0, len(files))
	owners := make(map[string]string)
	for _, file := range files {
		result := validateConfig(file)

		base := filepath.Base(file)
		id := strings.TrimSuffix(base, filepath.Ext(base))
		if other, ok := owners[id]; ok {
			result.fail("Preset id %q is also defined by %s", id, other)
		} else {
			owners[id] = base
		}
		results = append(results, result)
	}
	return results
}

// printReport writes a concise report and reports whether every file is valid
func printReport(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All presets are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some presets have errors")
	}
	return allValid
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate Blockfall presets",
		ArgsUsage: "[files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "configs", Usage: "directory scanned when no files are given", Sources: cli.EnvVars("CONFIG_DIR")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				files, err = presetFiles(cmd.String("dir"))
				if err != nil {
					return fmt.Errorf("error finding preset files: %w", err)
				}
				if len(files) == 0 {
					return fmt.Errorf("no presets found in %s", cmd.String("dir"))
				}
			}

			if !printReport(cmd.Root().Writer, validateFiles(files)) {
				return errors.New("some presets have errors")
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
