package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/analysis"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
)

var (
	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one position with the configured engine and print the result",
		Long: `analyze starts the engine, plans a search from the complexity of the
position and prints the committed move as JSON. With --autoplay it keeps playing
the committed moves until the game ends or --plies is reached.`,
		RunE: runAnalyze,
	}
	flgFEN      string
	flgStrategy string
	flgAutoplay bool
	flgPlies    int
	flgTimeout  time.Duration
	flgPGN      string
	flgPGNOut   string
)

func init() {
	analyzeCmd.Flags().StringVar(&flgFEN, "fen", common.InitialPositionFen, "position to analyze")
	analyzeCmd.Flags().StringVar(&flgStrategy, "strategy", "", "complexity, trend or mode")
	analyzeCmd.Flags().BoolVar(&flgAutoplay, "autoplay", false, "play the committed moves and continue")
	analyzeCmd.Flags().IntVar(&flgPlies, "plies", 0, "autoplay ply limit, overrides analysis.max_plies")
	analyzeCmd.Flags().DurationVar(&flgTimeout, "timeout", 10*time.Minute, "give up after this long")
	analyzeCmd.Flags().StringVar(&flgPGN, "pgn", "", "start from the end of the game in this PGN file instead of --fen")
	analyzeCmd.Flags().StringVar(&flgPGNOut, "pgn-out", "", "write the played moves as PGN to this file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	defer logger.Sync()
	var strategy domain.Strategy
	if flgStrategy != "" {
		var ok bool
		if strategy, ok = domain.ParseStrategy(flgStrategy); !ok {
			return fmt.Errorf("unknown strategy %q", flgStrategy)
		}
		cfg.Analysis.Strategy = strategy
	}
	if flgAutoplay {
		cfg.Analysis.Autoplay = true
	}
	if flgPlies > 0 {
		cfg.Analysis.MaxPlies = flgPlies
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, flgTimeout)
	defer cancel()

	st, err := newStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	var ctrl = newController(cfg, logger, nil, st)
	if err := ctrl.Connect(ctx); err != nil {
		return err
	}
	defer ctrl.Disconnect()
	if err := setPosition(ctrl); err != nil {
		return err
	}

	var notifications, unsubscribe = ctrl.Subscribe()
	defer unsubscribe()
	if _, err := ctrl.Analyze(ctx, strategy); err != nil {
		return err
	}
	err = printResults(ctx, cmd.OutOrStdout(), ctrl, notifications, cfg.Analysis.Autoplay)
	if flgPGNOut != "" {
		if werr := os.WriteFile(flgPGNOut, []byte(ctrl.PGN()), 0644); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

func setPosition(ctrl *analysis.Controller) error {
	if flgPGN == "" {
		return ctrl.SetPosition(flgFEN)
	}
	var content, err = os.ReadFile(flgPGN)
	if err != nil {
		return err
	}
	return ctrl.SetPositionPGN(string(content))
}

func printResults(ctx context.Context, out io.Writer, ctrl *analysis.Controller, notifications <-chan analysis.Notification, autoplay bool) error {
	var enc = json.NewEncoder(out)
	enc.SetIndent("", "  ")
	var ticker = time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	var printed string
	for {
		select {
		case <-ctx.Done():
			ctrl.Stop()
			return ctx.Err()
		case n := <-notifications:
			if n.Kind != analysis.KindResult {
				continue
			}
			if err := enc.Encode(n.Result); err != nil {
				return err
			}
			printed = n.Result.ID
			if !autoplay {
				return nil
			}
		case <-ticker.C:
			var snapshot = ctrl.Snapshot()
			if snapshot.Autoplay || snapshot.Analyzing {
				continue
			}
			// the last result may be committed but not yet published
			if last := snapshot.LastResult; last != nil && last.ID != printed {
				if err := enc.Encode(last); err != nil {
					return err
				}
			}
			if snapshot.GameOver != "" {
				logger.Infow("game over", "reason", snapshot.GameOver, "fen", snapshot.FEN)
			}
			return nil
		}
	}
}
