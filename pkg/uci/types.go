package uci

import "strconv"

// MateValue is the magnitude used to fold a mate score into a centipawn scale.
// Mate in N (moves) is represented as MateValue-N.
const MateValue = 30000

type Score struct {
	Centipawns int
	Mate       int
}

func (s Score) IsMate() bool {
	return s.Mate != 0
}

// Value folds the score into a single signed integer.
func (s Score) Value() int {
	if s.Mate > 0 {
		return MateValue - s.Mate
	}
	if s.Mate < 0 {
		return -MateValue - s.Mate
	}
	return s.Centipawns
}

// ScoreFromValue is the inverse of Value.
func ScoreFromValue(v int) Score {
	const mateBand = 1000
	if v >= MateValue-mateBand {
		return Score{Mate: MateValue - v}
	}
	if v <= -MateValue+mateBand {
		return Score{Mate: -MateValue - v}
	}
	return Score{Centipawns: v}
}

func (s Score) Negate() Score {
	return Score{Centipawns: -s.Centipawns, Mate: -s.Mate}
}

func (s Score) String() string {
	if s.Mate != 0 {
		return "mate " + strconv.Itoa(s.Mate)
	}
	return "cp " + strconv.Itoa(s.Centipawns)
}

// Field flags tell which tokens were present on an info line.
type Field uint16

const (
	FieldDepth Field = 1 << iota
	FieldSelDepth
	FieldMultiPV
	FieldNodes
	FieldTime
	FieldNPS
	FieldScore
	FieldPV
	FieldHashFull
	FieldCurrMove
)

type Info struct {
	Fields   Field
	Depth    int
	SelDepth int
	MultiPV  int
	Nodes    int64
	Time     int64
	NPS      int64
	Score    Score
	Bound    string
	HashFull int
	CurrMove string
	PV       []string
	String   string
}

func (i *Info) Has(f Field) bool {
	return i.Fields&f != 0
}

// NodesPerSecond returns the reported nps or derives it from nodes and time.
func (i *Info) NodesPerSecond() (int64, bool) {
	if i.Has(FieldNPS) {
		return i.NPS, true
	}
	if i.Has(FieldNodes) && i.Has(FieldTime) {
		return i.Nodes * 1000 / (i.Time + 1), true
	}
	return 0, false
}

type BestMove struct {
	Move   string
	Ponder string
}

// IsNull reports a bestmove without a move, as sent in terminal positions.
func (b BestMove) IsNull() bool {
	return b.Move == "" || b.Move == "0000" || b.Move == "(none)"
}

type RecordKind int

const (
	RecordUnknown RecordKind = iota
	RecordInfo
	RecordBestMove
	RecordID
	RecordOption
	RecordUciOk
	RecordReadyOk
)

type Record struct {
	Kind     RecordKind
	Info     Info
	BestMove BestMove
	Name     string
	Value    string
	Raw      string
}

type Limits struct {
	Depth    int
	MoveTime int
	Nodes    int
	Infinite bool
}
