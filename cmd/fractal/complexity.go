package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/complexity"
)

var (
	complexityCmd = &cobra.Command{
		Use:   "complexity [fen...]",
		Short: "Print the complexity score of positions",
		Long: `complexity scores each FEN given as an argument, or each line of standard
input when no arguments are given. No engine is started.`,
		RunE: runComplexity,
	}
	flgDimension float64
	flgVerbose   bool
)

func init() {
	complexityCmd.Flags().Float64Var(&flgDimension, "dimension", 0, "fractal dimension, overrides complexity.dimension")
	complexityCmd.Flags().BoolVarP(&flgVerbose, "verbose", "v", false, "print the raw signals too")
}

func runComplexity(cmd *cobra.Command, args []string) error {
	defer logger.Sync()
	var estimator = complexity.NewEstimator(cfg.Complexity, logger, nil)
	if flgDimension != 0 {
		estimator.SetDimension(flgDimension)
	}

	var fens = args
	if len(fens) == 0 {
		var scanner = bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				fens = append(fens, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}

	var out = cmd.OutOrStdout()
	for _, fen := range fens {
		var score = estimator.Complexity(fen)
		if !flgVerbose {
			fmt.Fprintf(out, "%.2f\t%v\n", score, fen)
			continue
		}
		var signals, err = estimator.Breakdown(fen)
		if err != nil {
			fmt.Fprintf(out, "%.2f\t%v\t%v\n", score, fen, err)
			continue
		}
		fmt.Fprintf(out, "%.2f\t%v\tpieces=%v mobility=%v center=%v king_safety=%v\n",
			score, fen, signals.Pieces, signals.Mobility, signals.Center, signals.KingSafety)
	}
	return nil
}
