package common

import (
	"testing"
)

//https://www.chessprogramming.org/Perft_Results
func TestPerft(t *testing.T) {
	var tests = []struct {
		fen   string
		depth int
		nodes int
	}{
		{
			fen:   InitialPositionFen,
			depth: 4,
			nodes: 197281,
		},
		{
			fen:   "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -",
			depth: 3,
			nodes: 97862,
		},
		{
			fen:   "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -",
			depth: 5,
			nodes: 674624,
		},
		{
			fen:   "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
			depth: 4,
			nodes: 422333,
		},
		{
			fen:   "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
			depth: 3,
			nodes: 62379,
		},
	}
	for i, test := range tests {
		var p, err = NewPositionFromFEN(test.fen)
		if err != nil {
			t.Fatal(i, err)
		}
		var nodes = Perft(&p, test.depth)
		if nodes != test.nodes {
			t.Error(i, test, nodes)
		}
	}
}

func Perft(p *Position, depth int) int {
	var result = 0
	var buffer [MaxMoves]Move
	var child Position
	for _, move := range GenerateMoves(buffer[:], p) {
		if p.MakeMove(move, &child) {
			if depth > 1 {
				result += Perft(&child, depth-1)
			} else {
				result++
			}
		}
	}
	return result
}
