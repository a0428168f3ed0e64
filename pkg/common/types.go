package common

const (
	WhiteKingSide = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide
)

// Position is a bitboard board description. The zero value is not a valid position,
// use NewPositionFromFEN.
type Position struct {
	Pawns, Knights, Bishops, Rooks, Queens, Kings, White, Black, Checkers uint64
	WhiteMove                                                             bool
	CastleRights, Rule50, EpSquare, FullMove                              int
}

const InitialPositionFen = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

const (
	Empty int = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

const (
	MaxMoves = 256
)

// Piece is a piece standing on a square as seen by callers outside the package.
type Piece struct {
	Type  int
	White bool
}

func (p Piece) IsEmpty() bool {
	return p.Type == Empty
}

func (p Piece) String() string {
	if p.Type == Empty {
		return "."
	}
	return pieceToChar(p.Type, p.White)
}

var pieceValues = [...]int{Empty: 0, Pawn: 100, Knight: 320, Bishop: 330, Rook: 500, Queen: 900, King: 0}

func PieceValue(pieceType int) int {
	return pieceValues[pieceType]
}
