package complexity

import (
	"strings"

	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
)

// Reference maxima used to normalize raw signals.
const (
	refPieces     = 32
	refMobility   = 218
	refCenter     = 40
	refKingSafety = 50
)

// Signals are the raw positional features a score is derived from.
type Signals struct {
	Pieces     int `json:"pieces"`
	Mobility   int `json:"mobility"`
	Center     int `json:"center"`
	KingSafety int `json:"king_safety"`
}

var centerSquares = [...]int{common.SquareD4, common.SquareE4, common.SquareD5, common.SquareE5}

func ComputeSignals(fen string, p *common.Position) Signals {
	return Signals{
		Pieces:     countPieces(fen),
		Mobility:   len(p.GenerateLegalMoves()),
		Center:     centerControl(p),
		KingSafety: kingSafety(p),
	}
}

// countPieces counts piece letters in the board field.
func countPieces(fen string) int {
	var board = fen
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		board = fen[:i]
	}
	var count = 0
	for _, ch := range board {
		if strings.ContainsRune("pnbrqkPNBRQK", ch) {
			count++
		}
	}
	return count
}

func centerControl(p *common.Position) int {
	var score = 0
	for _, sq := range centerSquares {
		var piece = p.PieceAt(sq)
		if piece.IsEmpty() {
			continue
		}
		if piece.White == p.WhiteMove {
			score += 10
		} else {
			score -= 10
		}
	}
	return score
}

const (
	kingCentralizationPenalty = 5
	castledBonus              = 10
	materialDivisor           = 50
	materialLimit             = 20
	attackerProximityPenalty  = 4
	attackerProximityDistance = 2
	pawnShieldBonus           = 2
	inCheckPenalty            = 15
	directAttackPenalty       = 3
	kingSafetyLimit           = 50
)

// kingSafety scores the king of the side to move.
func kingSafety(p *common.Position) int {
	var side = p.WhiteMove
	var kingSq = p.KingSquare(side)
	var file = common.File(kingSq)
	var relRank = common.Rank(kingSq)
	if !side {
		relRank = common.Rank8 - relRank
	}

	var score = 0

	var edge = common.Min(common.Min(file, 7-file), common.Min(relRank, 7-relRank))
	score -= kingCentralizationPenalty * edge

	if relRank == common.Rank1 && (file <= common.FileC || file >= common.FileG) {
		score += castledBonus
	}

	var material = (p.Material(side) - p.Material(!side)) / materialDivisor
	score += clampInt(material, -materialLimit, materialLimit)

	var own = p.PiecesByColor(side)
	var enemy = p.PiecesByColor(!side)
	for x := enemy &^ p.Pawns &^ p.Kings; x != 0; x &= x - 1 {
		var sq = common.FirstOne(x)
		if common.SquareDistance(sq, kingSq) <= attackerProximityDistance {
			score -= attackerProximityPenalty
		}
	}

	if relRank < common.Rank8 {
		var shieldRank = common.Rank(kingSq) + 1
		if !side {
			shieldRank = common.Rank(kingSq) - 1
		}
		for f := common.Max(file-1, common.FileA); f <= common.Min(file+1, common.FileH); f++ {
			var sq = common.MakeSquare(f, shieldRank)
			if common.SquareMask[sq]&p.Pawns&own != 0 {
				score += pawnShieldBonus
			}
		}
	}

	if p.IsCheck() {
		score -= inCheckPenalty
	}

	for x := common.KingAttacks[kingSq]; x != 0; x &= x - 1 {
		if p.IsAttackedBy(common.FirstOne(x), !side) {
			score -= directAttackPenalty
		}
	}

	return clampInt(score, -kingSafetyLimit, kingSafetyLimit)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
