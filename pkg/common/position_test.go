package common

import (
	"errors"
	"testing"
)

func TestFENRoundTrip(t *testing.T) {
	var fens = []string{
		InitialPositionFen,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 b - - 12 40",
	}
	for _, fen := range fens {
		var p, err = NewPositionFromFEN(fen)
		if err != nil {
			t.Error(fen, err)
			continue
		}
		if p.String() != fen {
			t.Error(fen, p.String())
		}
	}
}

func TestInvalidFEN(t *testing.T) {
	var fens = []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1",
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/ppppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - x 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQ1BNR w kq - 0 1",
		"4k3/8/8/8/8/8/8/4K2q b - - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq z9 0 1",
		"rnbqkbnr/ppzppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	}
	for _, fen := range fens {
		var err = ValidateFEN(fen)
		if !errors.Is(err, ErrInvalidFEN) {
			t.Error(fen, err)
		}
	}
}

func TestSanitizeFEN(t *testing.T) {
	var p, err = NewPositionFromFEN("4k3/8/8/8/8/8/8/4K3 w KQkq e3 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if p.CastleRights != 0 || p.EpSquare != SquareNone {
		t.Error(p.String())
	}
}

func TestStatus(t *testing.T) {
	var tests = []struct {
		fen    string
		status Status
	}{
		{InitialPositionFen, StatusOngoing},
		{"rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", StatusCheckmate},
		{"7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", StatusStalemate},
		{"4k3/8/8/8/8/8/8/3NK3 w - - 0 1", StatusLowMaterial},
		{"4k3/8/8/8/8/8/4P3/4K3 w - - 100 80", StatusFiftyMoves},
	}
	for _, test := range tests {
		var p, err = NewPositionFromFEN(test.fen)
		if err != nil {
			t.Fatal(test.fen, err)
		}
		if st := p.Status(); st != test.status {
			t.Error(test.fen, st, test.status)
		}
	}
}

func TestPieceAtAndAttacks(t *testing.T) {
	var p, _ = NewPositionFromFEN(InitialPositionFen)
	if pc := p.PieceAt(SquareE1); pc.Type != King || !pc.White {
		t.Error(pc)
	}
	if pc := p.PieceAt(SquareD8); pc.Type != Queen || pc.White {
		t.Error(pc)
	}
	if !p.PieceAt(SquareE4).IsEmpty() {
		t.Error("e4 should be empty")
	}
	if !p.IsAttackedBy(SquareF3, true) || p.IsAttackedBy(SquareF3, false) {
		t.Error("f3 attacks")
	}
	if n := len(p.LegalMovesFrom(SquareG1)); n != 2 {
		t.Error("g1 moves", n)
	}
	if n := len(p.GenerateLegalMoves()); n != 20 {
		t.Error("legal moves", n)
	}
}
