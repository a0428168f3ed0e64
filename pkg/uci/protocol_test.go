package uci

import (
	"reflect"
	"testing"
)

func TestParseInfo(t *testing.T) {
	var rec = ParseLine("info depth 12 seldepth 18 multipv 2 score cp -35 nodes 120000 nps 600000 time 200 pv e2e4 e7e5 g1f3")
	if rec.Kind != RecordInfo {
		t.Fatalf("kind %v", rec.Kind)
	}
	var info = rec.Info
	if info.Depth != 12 || info.SelDepth != 18 || info.MultiPV != 2 {
		t.Error("depth fields", info)
	}
	if info.Score != (Score{Centipawns: -35}) {
		t.Error("score", info.Score)
	}
	if info.Nodes != 120000 || info.Time != 200 || info.NPS != 600000 {
		t.Error("counters", info)
	}
	if !reflect.DeepEqual(info.PV, []string{"e2e4", "e7e5", "g1f3"}) {
		t.Error("pv", info.PV)
	}
}

func TestParseInfoAnyOrder(t *testing.T) {
	var info = ParseLine("info pv d2d4 score mate -3 depth 7").Info
	if !info.Has(FieldPV) || !info.Has(FieldScore) || !info.Has(FieldDepth) {
		t.Fatal("missing fields", info.Fields)
	}
	if info.Has(FieldNodes) || info.Has(FieldMultiPV) {
		t.Error("unexpected fields", info.Fields)
	}
	if info.Score.Mate != -3 || info.Score.Value() != -MateValue+3 {
		t.Error("mate score", info.Score)
	}
	if info.Depth != 7 {
		t.Error("depth", info.Depth)
	}
}

func TestParseInfoMalformed(t *testing.T) {
	var info = ParseLine("info depth x nodes 100 score cp time 5 currmove e2e4 hashfull").Info
	if info.Has(FieldDepth) {
		t.Error("bad depth accepted")
	}
	if info.Has(FieldScore) {
		t.Error("bad score accepted")
	}
	if !info.Has(FieldNodes) || info.Nodes != 100 {
		t.Error("nodes", info.Nodes)
	}
	if !info.Has(FieldTime) || info.Time != 5 {
		t.Error("time", info.Time)
	}
	if info.CurrMove != "e2e4" {
		t.Error("currmove", info.CurrMove)
	}
	var nps, ok = info.NodesPerSecond()
	if !ok || nps != 100*1000/6 {
		t.Error("nps", nps)
	}
}

func TestParseInfoBoundAndString(t *testing.T) {
	var info = ParseLine("info depth 3 score cp 20 upperbound string hello engine").Info
	if info.Bound != "upperbound" || info.Score.Centipawns != 20 {
		t.Error("bound", info.Bound, info.Score)
	}
	if info.String != "hello engine" {
		t.Error("string", info.String)
	}
}

func TestParseBestMove(t *testing.T) {
	var tests = []struct {
		line   string
		move   string
		ponder string
		null   bool
	}{
		{"bestmove e2e4 ponder e7e5", "e2e4", "e7e5", false},
		{"bestmove a7a8q", "a7a8q", "", false},
		{"bestmove (none)", "(none)", "", true},
		{"bestmove", "", "", true},
	}
	for _, test := range tests {
		var rec = ParseLine(test.line)
		if rec.Kind != RecordBestMove {
			t.Error(test.line, "kind", rec.Kind)
			continue
		}
		if rec.BestMove.Move != test.move || rec.BestMove.Ponder != test.ponder ||
			rec.BestMove.IsNull() != test.null {
			t.Error(test.line, rec.BestMove)
		}
	}
}

func TestParseHandshake(t *testing.T) {
	var rec = ParseLine("id name Counter 5.0")
	if rec.Kind != RecordID || rec.Name != "name" || rec.Value != "Counter 5.0" {
		t.Error("id", rec)
	}
	rec = ParseLine("option name Hash type spin default 16 min 4 max 1024")
	if rec.Kind != RecordOption || rec.Name != "Hash" {
		t.Error("option", rec)
	}
	if ParseLine("uciok").Kind != RecordUciOk || ParseLine("readyok").Kind != RecordReadyOk {
		t.Error("handshake tokens")
	}
	if ParseLine("").Kind != RecordUnknown || ParseLine("copyprotection ok").Kind != RecordUnknown {
		t.Error("unknown lines")
	}
}

func TestCommands(t *testing.T) {
	var tests = []struct {
		got, want string
	}{
		{GoCommand(Limits{Depth: 12}), "go depth 12"},
		{GoCommand(Limits{MoveTime: 500}), "go movetime 500"},
		{GoCommand(Limits{Depth: 8, Nodes: 1000}), "go depth 8 nodes 1000"},
		{GoCommand(Limits{}), "go infinite"},
		{GoCommand(Limits{Infinite: true, Depth: 5}), "go infinite"},
		{PositionCommand("", nil), "position startpos"},
		{PositionCommand("8/8/8/8/8/8/8/K1k5 w - - 0 1", []string{"a1a2"}),
			"position fen 8/8/8/8/8/8/8/K1k5 w - - 0 1 moves a1a2"},
		{SetOptionCommand("MultiPV", "3"), "setoption name MultiPV value 3"},
		{SetOptionCommand("Clear Hash", ""), "setoption name Clear Hash"},
		{OptionCommand(&IntOption{Name: "Hash", Min: 1, Max: 1024, Value: 64}), "setoption name Hash value 64"},
		{OptionCommand(&BoolOption{Name: "Ponder", Value: false}), "setoption name Ponder value false"},
	}
	for _, test := range tests {
		if test.got != test.want {
			t.Errorf("got %q want %q", test.got, test.want)
		}
	}
}

func TestParseOption(t *testing.T) {
	if _, ok := ParseOption("Threads", "4").(*IntOption); !ok {
		t.Error("int option")
	}
	if _, ok := ParseOption("UCI_Chess960", "true").(*BoolOption); !ok {
		t.Error("bool option")
	}
	if opt := ParseOption("SyzygyPath", "/tb"); opt.UciValue() != "/tb" {
		t.Error("string option")
	}
	var opt = &IntOption{Name: "Hash", Min: 1, Max: 10, Value: 20}
	if opt.Validate() == nil {
		t.Error("range not validated")
	}
}

func TestScore(t *testing.T) {
	if (Score{Mate: 2}).Value() != MateValue-2 {
		t.Error("mate value")
	}
	if (Score{Centipawns: 15}).Negate().Value() != -15 {
		t.Error("negate cp")
	}
	if (Score{Mate: 4}).Negate().Value() != -MateValue+4 {
		t.Error("negate mate")
	}
	if (Score{Mate: -1}).String() != "mate -1" {
		t.Error("string")
	}
	for _, s := range []Score{{Centipawns: 35}, {Centipawns: -900}, {Mate: 3}, {Mate: -2}} {
		if got := ScoreFromValue(s.Value()); got != s {
			t.Errorf("ScoreFromValue(%v) = %v", s.Value(), got)
		}
	}
}
