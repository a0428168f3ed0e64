package common

import (
	"fmt"
	"strings"
)

type Move int32

const MoveEmpty = Move(0)

func makeMove(from, to, movingPiece, capturedPiece int) Move {
	return Move(from ^ (to << 6) ^ (movingPiece << 12) ^ (capturedPiece << 15))
}

func (m Move) From() int {
	return int(m & 63)
}

func (m Move) To() int {
	return int((m >> 6) & 63)
}

func (m Move) MovingPiece() int {
	return int((m >> 12) & 7)
}

func (m Move) CapturedPiece() int {
	return int((m >> 15) & 7)
}

func (m Move) Promotion() int {
	return int((m >> 18) & 7)
}

// String returns the move in long algebraic (UCI) form.
func (m Move) String() string {
	if m == MoveEmpty {
		return "0000"
	}
	var sPromotion = ""
	if m.Promotion() != Empty {
		sPromotion = string("nbrq"[m.Promotion()-Knight])
	}
	return SquareName(m.From()) + SquareName(m.To()) + sPromotion
}

func (p *Position) ParseMoveLAN(lan string) Move {
	for _, mv := range p.GenerateLegalMoves() {
		if strings.EqualFold(mv.String(), lan) {
			return mv
		}
	}
	return MoveEmpty
}

func (p *Position) MakeMoveLAN(lan string) (Position, bool) {
	var mv = p.ParseMoveLAN(lan)
	if mv == MoveEmpty {
		return Position{}, false
	}
	var newPosition = Position{}
	if !p.MakeMove(mv, &newPosition) {
		return Position{}, false
	}
	return newPosition, true
}

func (p *Position) MakeMoveSAN(san string) (Position, bool) {
	var mv = p.ParseMoveSAN(san)
	if mv == MoveEmpty {
		return Position{}, false
	}
	var newPosition = Position{}
	if !p.MakeMove(mv, &newPosition) {
		return Position{}, false
	}
	return newPosition, true
}

// MoveToSAN returns the standard algebraic notation of a legal move including
// the check and mate suffix.
func (p *Position) MoveToSAN(mv Move) string {
	var ml = p.GenerateLegalMoves()
	var san = moveToSAN(p, ml, mv)
	var child Position
	if p.MakeMove(mv, &child) && child.IsCheck() {
		if child.HasLegalMoves() {
			san += "+"
		} else {
			san += "#"
		}
	}
	return san
}

// LineToSAN converts a sequence of UCI moves. Conversion stops at the first move
// that is not legal.
func (p *Position) LineToSAN(line []string) []string {
	var result = make([]string, 0, len(line))
	var cur = *p
	for _, lan := range line {
		var mv = cur.ParseMoveLAN(lan)
		if mv == MoveEmpty {
			break
		}
		result = append(result, cur.MoveToSAN(mv))
		var child Position
		cur.MakeMove(mv, &child)
		cur = child
	}
	return result
}

func moveToSAN(pos *Position, ml []Move, mv Move) string {
	const PieceNames = "NBRQK"
	if mv == whiteKingSideCastle || mv == blackKingSideCastle {
		return "O-O"
	}
	if mv == whiteQueenSideCastle || mv == blackQueenSideCastle {
		return "O-O-O"
	}
	var strPiece, strCapture, strFrom, strTo, strPromotion string
	if mv.MovingPiece() != Pawn {
		strPiece = string(PieceNames[mv.MovingPiece()-Knight])
	}
	strTo = SquareName(mv.To())
	if mv.CapturedPiece() != Empty {
		strCapture = "x"
		if mv.MovingPiece() == Pawn {
			strFrom = SquareName(mv.From())[:1]
		}
	}
	if mv.Promotion() != Empty {
		strPromotion = "=" + string(PieceNames[mv.Promotion()-Knight])
	}
	var ambiguity = false
	var uniqCol = true
	var uniqRow = true
	if mv.MovingPiece() != Pawn {
		for _, mv1 := range ml {
			if mv1.From() == mv.From() {
				continue
			}
			if mv1.To() != mv.To() {
				continue
			}
			if mv1.MovingPiece() != mv.MovingPiece() {
				continue
			}
			ambiguity = true
			if File(mv1.From()) == File(mv.From()) {
				uniqCol = false
			}
			if Rank(mv1.From()) == Rank(mv.From()) {
				uniqRow = false
			}
		}
	}
	if ambiguity {
		if uniqCol {
			strFrom = SquareName(mv.From())[:1]
		} else if uniqRow {
			strFrom = SquareName(mv.From())[1:2]
		} else {
			strFrom = SquareName(mv.From())
		}
	}
	return strPiece + strFrom + strCapture + strTo + strPromotion
}

func (p *Position) ParseMoveSAN(san string) Move {
	var index = strings.IndexAny(san, "+#?!")
	if index >= 0 {
		san = san[:index]
	}
	san = strings.ReplaceAll(san, "0", "O")
	var ml = p.GenerateLegalMoves()
	for _, mv := range ml {
		if san == moveToSAN(p, ml, mv) {
			return mv
		}
	}
	return MoveEmpty
}

func (p *Position) MustMakeMoveLAN(lan string) Position {
	var child, ok = p.MakeMoveLAN(lan)
	if !ok {
		panic(fmt.Errorf("illegal move %v in %v", lan, p.String()))
	}
	return child
}
