package analysis

import (
	"time"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/pgn"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/uci"
)

// applyMoveLocked plays the committed move on the analysed position and decides
// whether the game goes on.
func (c *Controller) applyMoveLocked(result *domain.Result) {
	var cur = &c.positions[len(c.positions)-1]
	var child, ok = cur.MakeMoveLAN(result.Move)
	if !ok {
		c.logger.Warnw("autoplay: illegal move", "fen", c.fen, "move", result.Move)
		c.autoplay = false
		return
	}
	c.positions = append(c.positions, child)
	c.fen = child.String()
	c.lines = nil
	c.engine.ResetStats()
	c.record = append(c.record, pgn.Item{
		San:     result.SAN,
		Comment: &pgn.Comment{Depth: result.Depth, Score: uci.ScoreFromValue(result.Eval)},
	})

	if reason := gameOver(c.positions, c.cfg.MaxPlies); reason != "" {
		c.gameOver = reason
		c.autoplay = false
		c.logger.Infow("autoplay finished", "reason", reason, "plies", len(c.positions)-1, "fen", c.fen)
	}
}

// gameOver returns why the game in positions is finished or an empty string.
func gameOver(positions []common.Position, maxPlies int) string {
	var cur = &positions[len(positions)-1]
	if st := cur.Status(); st.IsTerminal() {
		return st.String()
	}
	if repetitions(positions) >= 3 {
		return "3 fold repetition"
	}
	if len(positions)-1 >= maxPlies {
		return "max plies"
	}
	return ""
}

func repetitions(positions []common.Position) int {
	var cur = &positions[len(positions)-1]
	var count = 0
	for i := len(positions) - 1; i >= 0; i-- {
		if positions[i].SamePlacement(cur) {
			count++
		}
	}
	return count
}

func gameResult(last *common.Position, reason string) string {
	switch reason {
	case "":
		return pgn.GameResultNone
	case common.StatusCheckmate.String():
		if last.WhiteMove {
			return pgn.GameResultBlackWin
		}
		return pgn.GameResultWhiteWin
	case "max plies":
		return pgn.GameResultNone
	}
	return pgn.GameResultDraw
}

// PGN returns the moves played from the last set position, with engine comments.
func (c *Controller) PGN() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.positions) == 0 {
		return ""
	}
	var game = pgn.Game{
		Tags: []pgn.Tag{
			{Key: "Event", Value: "FractalAnalyzer autoplay"},
			{Key: "Date", Value: time.Now().Format("2006.01.02")},
			{Key: "White", Value: "engine"},
			{Key: "Black", Value: "engine"},
		},
		Fen:    c.positions[0].String(),
		Items:  c.record,
		Result: gameResult(&c.positions[len(c.positions)-1], c.gameOver),
	}
	if c.gameOver != "" {
		game.Tags = append(game.Tags, pgn.Tag{Key: "Termination", Value: c.gameOver})
	}
	return game.String()
}

// SetPositionPGN replays a game and makes its final position the analysed one.
// The earlier positions count for repetition.
func (c *Controller) SetPositionPGN(text string) error {
	var game, positions, err = pgn.ParseGame(text)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cancelLocked()
	c.positions = positions
	c.fen = positions[len(positions)-1].String()
	c.record = game.Items
	c.evals = nil
	c.lines = nil
	c.plan = nil
	c.gameOver = gameOver(positions, len(positions)+c.cfg.MaxPlies)
	c.pendingNext = false
	c.mu.Unlock()
	c.engine.ResetStats()
	c.newGame()
	c.publishStatus(nil)
	return nil
}
