package common

import (
	"errors"
	"fmt"
	"strconv"
	s "strings"
	"unicode"
)

var ErrInvalidFEN = errors.New("invalid fen")

type coloredPiece struct {
	Type int
	Side bool
}

var castleMask [64]int

func createPosition(board [64]coloredPiece, wtm bool,
	castleRights, ep, fifty, fullMove int) (Position, bool) {
	var p = Position{
		WhiteMove:    wtm,
		CastleRights: castleRights,
		EpSquare:     ep,
		Rule50:       fifty,
		FullMove:     fullMove,
	}

	var whiteKings, blackKings int
	for sq, piece := range board {
		if piece.Type != Empty {
			xorPiece(&p, piece.Type, piece.Side, sq)
			if piece.Type == King {
				if piece.Side {
					whiteKings++
				} else {
					blackKings++
				}
			}
		}
	}
	if whiteKings != 1 || blackKings != 1 {
		return Position{}, false
	}
	if p.Pawns&(Rank1Mask|Rank8Mask) != 0 {
		return Position{}, false
	}
	p.CastleRights = sanitizeCastleRights(&p, castleRights)
	p.EpSquare = sanitizeEpSquare(&p, ep)

	p.Checkers = p.computeCheckers()

	if !p.isLegal() {
		return Position{}, false
	}
	return p, true
}

// castling rights that do not match the king and rook placement are dropped
func sanitizeCastleRights(p *Position, cr int) int {
	var has = func(pieceType int, side bool, sq int) bool {
		var pt, sd = p.GetPieceTypeAndSide(sq)
		return pt == pieceType && sd == side
	}
	if !has(King, true, SquareE1) {
		cr &^= WhiteKingSide | WhiteQueenSide
	}
	if !has(Rook, true, SquareH1) {
		cr &^= WhiteKingSide
	}
	if !has(Rook, true, SquareA1) {
		cr &^= WhiteQueenSide
	}
	if !has(King, false, SquareE8) {
		cr &^= BlackKingSide | BlackQueenSide
	}
	if !has(Rook, false, SquareH8) {
		cr &^= BlackKingSide
	}
	if !has(Rook, false, SquareA8) {
		cr &^= BlackQueenSide
	}
	return cr
}

func sanitizeEpSquare(p *Position, ep int) int {
	if ep == SquareNone {
		return SquareNone
	}
	var pawnSq int
	if p.WhiteMove {
		if Rank(ep) != Rank6 {
			return SquareNone
		}
		pawnSq = ep - 8
	} else {
		if Rank(ep) != Rank3 {
			return SquareNone
		}
		pawnSq = ep + 8
	}
	var pt, side = p.GetPieceTypeAndSide(pawnSq)
	if pt != Pawn || side == p.WhiteMove || (p.White|p.Black)&SquareMask[ep] != 0 {
		return SquareNone
	}
	return ep
}

func invalidFEN(fen, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidFEN, fen, reason)
}

// NewPositionFromFEN parses a FEN string. The move counters are optional.
func NewPositionFromFEN(fen string) (Position, error) {
	var tokens = s.Fields(fen)
	if len(tokens) < 4 {
		return Position{}, invalidFEN(fen, "expected at least 4 fields")
	}

	var board [64]coloredPiece

	var ranks = s.Split(tokens[0], "/")
	if len(ranks) != 8 {
		return Position{}, invalidFEN(fen, fmt.Sprintf("expected 8 ranks, got %v", len(ranks)))
	}
	for r, rank := range ranks {
		var file = 0
		for _, ch := range rank {
			if file >= 8 {
				return Position{}, invalidFEN(fen, fmt.Sprintf("rank %v is too long", 8-r))
			}
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
			} else if unicode.IsLetter(ch) {
				var pt = parsePiece(ch)
				if pt.Type == Empty {
					return Position{}, invalidFEN(fen, fmt.Sprintf("bad piece %q", ch))
				}
				board[MakeSquare(file, Rank8-r)] = pt
				file++
			} else {
				return Position{}, invalidFEN(fen, fmt.Sprintf("bad symbol %q", ch))
			}
		}
		if file != 8 {
			return Position{}, invalidFEN(fen, fmt.Sprintf("rank %v has %v files", 8-r, file))
		}
	}

	var whiteMove bool
	switch tokens[1] {
	case "w":
		whiteMove = true
	case "b":
		whiteMove = false
	default:
		return Position{}, invalidFEN(fen, "bad side to move")
	}

	var sCastleRights = tokens[2]
	var cr = 0
	if sCastleRights != "-" {
		for _, ch := range sCastleRights {
			switch ch {
			case 'K':
				cr |= WhiteKingSide
			case 'Q':
				cr |= WhiteQueenSide
			case 'k':
				cr |= BlackKingSide
			case 'q':
				cr |= BlackQueenSide
			default:
				return Position{}, invalidFEN(fen, "bad castling rights")
			}
		}
	}

	var epSquare = SquareNone
	if tokens[3] != "-" {
		epSquare = ParseSquare(tokens[3])
		if epSquare == SquareNone {
			return Position{}, invalidFEN(fen, "bad en passant square")
		}
	}

	var rule50 = 0
	var fullMove = 1
	if len(tokens) > 4 {
		var n, err = strconv.Atoi(tokens[4])
		if err != nil || n < 0 {
			return Position{}, invalidFEN(fen, "bad halfmove clock")
		}
		rule50 = n
	}
	if len(tokens) > 5 {
		var n, err = strconv.Atoi(tokens[5])
		if err != nil || n < 1 {
			return Position{}, invalidFEN(fen, "bad fullmove number")
		}
		fullMove = n
	}

	var pos, isLegal = createPosition(board, whiteMove, cr, epSquare, rule50, fullMove)
	if !isLegal {
		return Position{}, invalidFEN(fen, "illegal position")
	}
	return pos, nil
}

func ValidateFEN(fen string) error {
	var _, err = NewPositionFromFEN(fen)
	return err
}

func (p *Position) String() string {
	var sb s.Builder

	var emptyCount = 0

	for i := 0; i < 64; i++ {
		var sq = FlipSquare(i)
		var piece = p.WhatPiece(sq)
		if piece == Empty {
			emptyCount++
		} else {
			if emptyCount != 0 {
				sb.WriteString(strconv.Itoa(emptyCount))
				emptyCount = 0
			}

			var pieceSide = (p.White & SquareMask[sq]) != 0
			sb.WriteString(pieceToChar(piece, pieceSide))
		}

		if File(sq) == FileH {
			if emptyCount != 0 {
				sb.WriteString(strconv.Itoa(emptyCount))
				emptyCount = 0
			}
			if Rank(sq) != Rank1 {
				sb.WriteString("/")
			}
		}
	}
	sb.WriteString(" ")

	if p.WhiteMove {
		sb.WriteString("w")
	} else {
		sb.WriteString("b")
	}
	sb.WriteString(" ")

	if p.CastleRights == 0 {
		sb.WriteString("-")
	} else {
		if (p.CastleRights & WhiteKingSide) != 0 {
			sb.WriteString("K")
		}
		if (p.CastleRights & WhiteQueenSide) != 0 {
			sb.WriteString("Q")
		}
		if (p.CastleRights & BlackKingSide) != 0 {
			sb.WriteString("k")
		}
		if (p.CastleRights & BlackQueenSide) != 0 {
			sb.WriteString("q")
		}
	}
	sb.WriteString(" ")

	if p.EpSquare == SquareNone {
		sb.WriteString("-")
	} else {
		sb.WriteString(SquareName(p.EpSquare))
	}
	sb.WriteString(" ")

	sb.WriteString(strconv.Itoa(p.Rule50))
	sb.WriteString(" ")

	sb.WriteString(strconv.Itoa(Max(p.FullMove, 1)))

	return sb.String()
}

func pieceToChar(pieceType int, side bool) string {
	var result = string("pnbrqk"[pieceType-Pawn])
	if side {
		result = s.ToUpper(result)
	}
	return result
}

func (p *Position) GetPieceTypeAndSide(sq int) (pieceType int, side bool) {
	var bb = SquareMask[sq]
	if (p.White & bb) != 0 {
		side = true
	} else if (p.Black & bb) != 0 {
		side = false
	} else {
		pieceType = Empty
		return
	}
	pieceType = p.WhatPiece(sq)
	return
}

func (p *Position) PieceAt(sq int) Piece {
	var pt, side = p.GetPieceTypeAndSide(sq)
	return Piece{Type: pt, White: side}
}

func (p *Position) WhatPiece(sq int) int {
	var bb = SquareMask[sq]
	if ((p.White | p.Black) & bb) == 0 {
		return Empty
	}
	if (p.Pawns & bb) != 0 {
		return Pawn
	}
	if (p.Knights & bb) != 0 {
		return Knight
	}
	if (p.Bishops & bb) != 0 {
		return Bishop
	}

	if (p.Rooks & bb) != 0 {
		return Rook
	}
	if (p.Queens & bb) != 0 {
		return Queen
	}
	if (p.Kings & bb) != 0 {
		return King
	}
	panic(fmt.Errorf("wrong piece on %s", SquareName(sq)))
}

func (src *Position) MakeMove(move Move, result *Position) bool {
	var from = move.From()
	var to = move.To()
	var movingPiece = move.MovingPiece()
	var capturedPiece = move.CapturedPiece()

	result.Pawns = src.Pawns
	result.Knights = src.Knights
	result.Bishops = src.Bishops
	result.Rooks = src.Rooks
	result.Queens = src.Queens
	result.Kings = src.Kings
	result.White = src.White
	result.Black = src.Black

	result.WhiteMove = !src.WhiteMove
	result.FullMove = src.FullMove
	if !src.WhiteMove {
		result.FullMove++
	}

	result.CastleRights = src.CastleRights & castleMask[from] & castleMask[to]

	if movingPiece == Pawn || capturedPiece != Empty {
		result.Rule50 = 0
	} else {
		result.Rule50 = src.Rule50 + 1
	}

	result.EpSquare = SquareNone

	if capturedPiece != Empty {
		if capturedPiece == Pawn && to == src.EpSquare {
			xorPiece(result, Pawn, !src.WhiteMove, to+let(src.WhiteMove, -8, 8))
		} else {
			xorPiece(result, capturedPiece, !src.WhiteMove, to)
		}
	}

	movePiece(result, movingPiece, src.WhiteMove, from, to)

	if movingPiece == Pawn {
		if src.WhiteMove {
			if to == from+16 {
				result.EpSquare = from + 8
			}
			if Rank(to) == Rank8 {
				xorPiece(result, Pawn, true, to)
				xorPiece(result, move.Promotion(), true, to)
			}
		} else {
			if to == from-16 {
				result.EpSquare = from - 8
			}
			if Rank(to) == Rank1 {
				xorPiece(result, Pawn, false, to)
				xorPiece(result, move.Promotion(), false, to)
			}
		}
	} else if movingPiece == King {
		if src.WhiteMove {
			if from == SquareE1 && to == SquareG1 {
				movePiece(result, Rook, true, SquareH1, SquareF1)
			}
			if from == SquareE1 && to == SquareC1 {
				movePiece(result, Rook, true, SquareA1, SquareD1)
			}
		} else {
			if from == SquareE8 && to == SquareG8 {
				movePiece(result, Rook, false, SquareH8, SquareF8)
			}
			if from == SquareE8 && to == SquareC8 {
				movePiece(result, Rook, false, SquareA8, SquareD8)
			}
		}
	}

	if !result.isLegal() {
		return false
	}
	result.Checkers = result.computeCheckers()
	return true
}

func (p *Position) PiecesByColor(side bool) uint64 {
	if side {
		return p.White
	}
	return p.Black
}

func xorPiece(p *Position, piece int, side bool, square int) {
	var b = SquareMask[square]
	if side {
		p.White ^= b
	} else {
		p.Black ^= b
	}
	switch piece {
	case Pawn:
		p.Pawns ^= b
	case Knight:
		p.Knights ^= b
	case Bishop:
		p.Bishops ^= b
	case Rook:
		p.Rooks ^= b
	case Queen:
		p.Queens ^= b
	case King:
		p.Kings ^= b
	}
}

func movePiece(p *Position, piece int, side bool, from int, to int) {
	var b = SquareMask[from] ^ SquareMask[to]
	if side {
		p.White ^= b
	} else {
		p.Black ^= b
	}
	switch piece {
	case Pawn:
		p.Pawns ^= b
	case Knight:
		p.Knights ^= b
	case Bishop:
		p.Bishops ^= b
	case Rook:
		p.Rooks ^= b
	case Queen:
		p.Queens ^= b
	case King:
		p.Kings ^= b
	}
}

// IsAttackedBy reports whether side attacks sq.
func (p *Position) IsAttackedBy(sq int, side bool) bool {
	return p.isAttackedBySide(sq, side)
}

func (p *Position) isAttackedBySide(sq int, side bool) bool {
	var enemy = p.PiecesByColor(side)
	if (PawnAttacks(sq, !side) & p.Pawns & enemy) != 0 {
		return true
	}
	if (KnightAttacks[sq] & p.Knights & enemy) != 0 {
		return true
	}
	if (KingAttacks[sq] & p.Kings & enemy) != 0 {
		return true
	}
	var allPieces = p.White | p.Black
	if (BishopAttacks(sq, allPieces) & (p.Bishops | p.Queens) & enemy) != 0 {
		return true
	}
	if (RookAttacks(sq, allPieces) & (p.Rooks | p.Queens) & enemy) != 0 {
		return true
	}
	return false
}

// AttackersTo returns attackers of both colours.
func (p *Position) AttackersTo(sq int) uint64 {
	var occ = p.White | p.Black
	return (blackPawnAttacks[sq] & p.Pawns & p.White) |
		(whitePawnAttacks[sq] & p.Pawns & p.Black) |
		(KnightAttacks[sq] & p.Knights) |
		(BishopAttacks(sq, occ) & (p.Bishops | p.Queens)) |
		(RookAttacks(sq, occ) & (p.Rooks | p.Queens)) |
		(KingAttacks[sq] & p.Kings)
}

func (p *Position) KingSquare(side bool) int {
	return FirstOne(p.Kings & p.PiecesByColor(side))
}

func (p *Position) computeCheckers() uint64 {
	if p.WhiteMove {
		return p.AttackersTo(p.KingSquare(true)) & p.Black
	}
	return p.AttackersTo(p.KingSquare(false)) & p.White
}

func (p *Position) isLegal() bool {
	var kingSq = p.KingSquare(!p.WhiteMove)
	return !p.isAttackedBySide(kingSq, p.WhiteMove)
}

func (p *Position) IsCheck() bool {
	return p.Checkers != 0
}

// SamePlacement reports whether both positions would count as a repetition.
func (p *Position) SamePlacement(other *Position) bool {
	return p.White == other.White &&
		p.Black == other.Black &&
		p.Pawns == other.Pawns &&
		p.Knights == other.Knights &&
		p.Bishops == other.Bishops &&
		p.Rooks == other.Rooks &&
		p.Queens == other.Queens &&
		p.Kings == other.Kings &&
		p.WhiteMove == other.WhiteMove &&
		p.CastleRights == other.CastleRights &&
		p.EpSquare == other.EpSquare
}

func init() {
	for i := range castleMask {
		castleMask[i] = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
	}
	castleMask[SquareA1] &^= WhiteQueenSide
	castleMask[SquareE1] &^= WhiteQueenSide | WhiteKingSide
	castleMask[SquareH1] &^= WhiteKingSide
	castleMask[SquareA8] &^= BlackQueenSide
	castleMask[SquareE8] &^= BlackQueenSide | BlackKingSide
	castleMask[SquareH8] &^= BlackKingSide
}
