package common

type Status int

const (
	StatusOngoing Status = iota
	StatusCheckmate
	StatusStalemate
	StatusFiftyMoves
	StatusLowMaterial
)

var statusNames = [...]string{"ongoing", "checkmate", "stalemate", "50 moves", "low material"}

func (s Status) String() string {
	return statusNames[s]
}

func (s Status) IsTerminal() bool {
	return s != StatusOngoing
}

func (p *Position) Status() Status {
	if !p.HasLegalMoves() {
		if p.IsCheck() {
			return StatusCheckmate
		}
		return StatusStalemate
	}
	if p.Rule50 >= 100 {
		return StatusFiftyMoves
	}
	if p.IsLowMaterial() {
		return StatusLowMaterial
	}
	return StatusOngoing
}

func (p *Position) IsCheckmate() bool {
	return p.IsCheck() && !p.HasLegalMoves()
}

func (p *Position) IsStalemate() bool {
	return !p.IsCheck() && !p.HasLegalMoves()
}

func (p *Position) IsDraw() bool {
	var st = p.Status()
	return st == StatusStalemate || st == StatusFiftyMoves || st == StatusLowMaterial
}

func (p *Position) IsLowMaterial() bool {
	return (p.Pawns|p.Rooks|p.Queens) == 0 &&
		!MoreThanOne(p.Knights|p.Bishops)
}

// Material returns the sum of piece values of one side.
func (p *Position) Material(side bool) int {
	var own = p.PiecesByColor(side)
	return PopCount(p.Pawns&own)*PieceValue(Pawn) +
		PopCount(p.Knights&own)*PieceValue(Knight) +
		PopCount(p.Bishops&own)*PieceValue(Bishop) +
		PopCount(p.Rooks&own)*PieceValue(Rook) +
		PopCount(p.Queens&own)*PieceValue(Queen)
}
