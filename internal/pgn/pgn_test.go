package pgn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChizhovVadim/FractalAnalyzer/pkg/uci"
)

func TestWriteAndParse(t *testing.T) {
	var game = Game{
		Tags: []Tag{{Key: "Event", Value: "test"}, {Key: "Result", Value: "ignored"}},
		Items: []Item{
			{San: "e4", Comment: &Comment{Depth: 12, Score: uci.Score{Centipawns: 30}}},
			{San: "e5", Comment: &Comment{Depth: 11, Score: uci.Score{Centipawns: -25}}},
			{San: "Nf3"},
		},
		Result: GameResultNone,
	}
	var text = game.String()
	assert.Equal(t, "[Event \"test\"]\n[Result \"*\"]\n\n1. e4 {+0.30/12} e5 {-0.25/11} 2. Nf3 *\n", text)

	parsed, positions, err := ParseGame(text)
	require.NoError(t, err)
	require.Len(t, positions, 4)
	assert.Equal(t, GameResultNone, parsed.Result)
	assert.Equal(t, game.Items, parsed.Items)
	var event, ok = parsed.TagValue("Event")
	assert.True(t, ok)
	assert.Equal(t, "test", event)
}

func TestMateComment(t *testing.T) {
	assert.Equal(t, "+M3/20", formatComment(Comment{Depth: 20, Score: uci.Score{Mate: 3}}))
	assert.Equal(t, "-M2/9", formatComment(Comment{Depth: 9, Score: uci.Score{Mate: -2}}))

	var c, err = parseComment("-M2/9 extra")
	require.NoError(t, err)
	assert.Equal(t, Comment{Depth: 9, Score: uci.Score{Mate: -2}}, c)

	_, err = parseComment("book")
	assert.Error(t, err)
}

func TestFENStart(t *testing.T) {
	const fen = "4k3/8/8/8/8/8/4P3/4K3 b - - 0 40"
	var game = Game{
		Fen:    fen,
		Items:  []Item{{San: "Kd7"}, {San: "e4"}},
		Result: GameResultDraw,
	}
	var text = game.String()
	assert.Contains(t, text, "[SetUp \"1\"]\n[FEN \""+fen+"\"]\n")
	assert.Contains(t, text, "40... Kd7 41. e4 1/2-1/2")

	parsed, positions, err := ParseGame(text)
	require.NoError(t, err)
	assert.Equal(t, fen, parsed.Fen)
	assert.Equal(t, GameResultDraw, parsed.Result)
	assert.Equal(t, "8/3k4/8/8/4P3/8/8/4K3 b - e3 0 41", positions[len(positions)-1].String())
}

func TestIllegalMove(t *testing.T) {
	var _, _, err = ParseGame("1. e4 e5 2. Ke3 *")
	assert.ErrorIs(t, err, ErrIllegalMove)

	_, _, err = ParseGame("[FEN \"bad\"]\n1. e4 *")
	assert.Error(t, err)
}
