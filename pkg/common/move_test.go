package common

import (
	"reflect"
	"testing"
)

func TestSAN(t *testing.T) {
	var tests = []struct {
		fen string
		lan string
		san string
	}{
		{InitialPositionFen, "g1f3", "Nf3"},
		{InitialPositionFen, "e2e4", "e4"},
		{"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1", "O-O"},
		{"r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", "e8c8", "O-O-O"},
		{"4k3/P7/8/8/8/8/8/4K3 w - - 0 1", "a7a8q", "a8=Q+"},
		{"4k3/8/8/8/8/8/8/R4RK1 w - - 0 1", "a1d1", "Rad1"},
		{"6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "a1a8", "Ra8#"},
		{"rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2", "e4d5", "exd5"},
	}
	for _, test := range tests {
		var p, err = NewPositionFromFEN(test.fen)
		if err != nil {
			t.Fatal(test.fen, err)
		}
		var mv = p.ParseMoveLAN(test.lan)
		if mv == MoveEmpty {
			t.Error("illegal", test.lan)
			continue
		}
		if san := p.MoveToSAN(mv); san != test.san {
			t.Error(test.lan, san, test.san)
		}
		if back := p.ParseMoveSAN(test.san); back != mv {
			t.Error(test.san, back)
		}
	}
}

func TestLineToSAN(t *testing.T) {
	var p, _ = NewPositionFromFEN(InitialPositionFen)
	var got = p.LineToSAN([]string{"e2e4", "e7e5", "g1f3", "zzzz", "b8c6"})
	var want = []string{"e4", "e5", "Nf3"}
	if !reflect.DeepEqual(got, want) {
		t.Error(got)
	}
}

func TestMakeMoveCounters(t *testing.T) {
	var p, _ = NewPositionFromFEN(InitialPositionFen)
	var child, ok = p.MakeMoveSAN("e4")
	if !ok {
		t.Fatal("e4")
	}
	if child.String() != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1" {
		t.Error(child.String())
	}
	child = child.MustMakeMoveLAN("g8f6")
	if child.String() != "rnbqkb1r/pppppppp/5n2/8/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 1 2" {
		t.Error(child.String())
	}
}
