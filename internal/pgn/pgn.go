package pgn

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/uci"
)

const (
	GameResultNone     = "*"
	GameResultWhiteWin = "1-0"
	GameResultBlackWin = "0-1"
	GameResultDraw     = "1/2-1/2"
)

type Tag struct {
	Key   string
	Value string
}

// Comment is the engine annotation of a move: score from the mover's side and depth.
type Comment struct {
	Depth int
	Score uci.Score
}

type Item struct {
	San     string
	Comment *Comment
}

type Game struct {
	Tags   []Tag
	Fen    string
	Items  []Item
	Result string
}

func (g *Game) TagValue(key string) (string, bool) {
	return tagValue(g.Tags, key)
}

// String renders the game as PGN with "{score/depth}" move comments.
func (g *Game) String() string {
	var result = g.Result
	if result == "" {
		result = GameResultNone
	}
	var sb = &strings.Builder{}
	for _, tag := range g.Tags {
		if tag.Key == "Result" || tag.Key == "FEN" || tag.Key == "SetUp" {
			continue
		}
		fmt.Fprintf(sb, "[%v \"%v\"]\n", tag.Key, tag.Value)
	}
	fmt.Fprintf(sb, "[Result \"%v\"]\n", result)

	var start = startPosition
	if g.Fen != "" && g.Fen != common.InitialPositionFen {
		fmt.Fprintf(sb, "[SetUp \"1\"]\n[FEN \"%v\"]\n", g.Fen)
		if pos, err := common.NewPositionFromFEN(g.Fen); err == nil {
			start = pos
		}
	}
	sb.WriteString("\n")

	var moveNumber = start.FullMove
	if moveNumber < 1 {
		moveNumber = 1
	}
	var whiteMove = start.WhiteMove
	for i, item := range g.Items {
		if whiteMove {
			fmt.Fprintf(sb, "%v. ", moveNumber)
		} else if i == 0 {
			fmt.Fprintf(sb, "%v... ", moveNumber)
		}
		sb.WriteString(item.San)
		if item.Comment != nil {
			fmt.Fprintf(sb, " {%v}", formatComment(*item.Comment))
		}
		sb.WriteString(" ")
		if !whiteMove {
			moveNumber++
		}
		whiteMove = !whiteMove
	}
	sb.WriteString(result)
	sb.WriteString("\n")
	return sb.String()
}

// ParseGame reads one game and replays its moves. It returns the game and every
// position from the start to the last legal move.
func ParseGame(pgn string) (Game, []common.Position, error) {
	var tags = parseTags(pgn)

	var curPosition = startPosition
	var fen, fenFound = tagValue(tags, "FEN")
	if fenFound {
		var err error
		curPosition, err = common.NewPositionFromFEN(fen)
		if err != nil {
			return Game{}, nil, fmt.Errorf("parse FEN tag failed: %w", err)
		}
	}
	var game = Game{Tags: tags, Fen: curPosition.String()}
	if result, ok := tagValue(tags, "Result"); ok {
		game.Result = result
	}

	var positions = []common.Position{curPosition}
	for _, token := range parseTokens(pgn) {
		if isResultToken(token.Value) {
			game.Result = token.Value
			break
		}
		var child, ok = curPosition.MakeMoveSAN(token.Value)
		if !ok {
			return Game{}, nil, fmt.Errorf("%w: %q after %v moves", ErrIllegalMove, token.Value, len(game.Items))
		}
		var item = Item{San: curPosition.MoveToSAN(curPosition.ParseMoveSAN(token.Value))}
		if token.Comment != "" {
			if comment, err := parseComment(token.Comment); err == nil {
				item.Comment = &comment
			}
		}
		game.Items = append(game.Items, item)
		curPosition = child
		positions = append(positions, child)
	}
	return game, positions, nil
}

var ErrIllegalMove = errors.New("illegal move in pgn")

func parseTags(pgn string) []Tag {
	var tags = make([]Tag, 0, 16)
	tagMatches := tagPairRegex.FindAllStringSubmatch(pgn, -1)
	for i := range tagMatches {
		tags = append(tags, Tag{Key: tagMatches[i][1], Value: tagMatches[i][2]})
	}
	return tags
}

func tagValue(tags []Tag, key string) (string, bool) {
	for _, tag := range tags {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}

type token struct {
	Value   string
	Comment string
}

func parseTokens(pgn string) []token {
	pgn = tagsRegex.ReplaceAllString(pgn, "")
	var result []token
	var inComment = false
	var body = &strings.Builder{}
	var flush = func() {
		if body.Len() != 0 {
			result = append(result, token{Value: body.String()})
			body.Reset()
		}
	}
	for _, r := range pgn {
		switch {
		case inComment:
			if r == '}' {
				if len(result) != 0 {
					result[len(result)-1].Comment = body.String()
				}
				inComment = false
				body.Reset()
			} else {
				body.WriteRune(r)
			}
		case r == '.':
			body.Reset()
		case unicode.IsSpace(r):
			flush()
		case r == '{':
			flush()
			inComment = true
		default:
			body.WriteRune(r)
		}
	}
	flush()
	return result
}

func isResultToken(s string) bool {
	return s == GameResultNone || s == GameResultWhiteWin || s == GameResultBlackWin || s == GameResultDraw
}

func formatComment(c Comment) string {
	if c.Score.Mate != 0 {
		var sign = "+"
		if c.Score.Mate < 0 {
			sign = "-"
		}
		var n = c.Score.Mate
		if n < 0 {
			n = -n
		}
		return fmt.Sprintf("%vM%v/%v", sign, n, c.Depth)
	}
	return fmt.Sprintf("%+.2f/%v", float64(c.Score.Centipawns)/100, c.Depth)
}

func parseComment(comment string) (Comment, error) {
	var fields = strings.Fields(comment)
	if len(fields) == 0 {
		return Comment{}, errParseComment
	}
	var s = fields[0]
	var index = strings.Index(s, "/")
	if index < 0 {
		return Comment{}, errParseComment
	}
	var sScore = s[:index]
	var sDepth = s[index+1:]

	var score uci.Score
	if strings.Contains(sScore, "M") {
		var n, err = strconv.Atoi(strings.Replace(sScore, "M", "", 1))
		if err != nil {
			return Comment{}, err
		}
		score = uci.Score{Mate: n}
	} else {
		var v, err = strconv.ParseFloat(sScore, 64)
		if err != nil {
			return Comment{}, err
		}
		score = uci.Score{Centipawns: int(math.Round(100 * v))}
	}

	depth, err := strconv.Atoi(sDepth)
	if err != nil {
		return Comment{}, err
	}
	return Comment{Score: score, Depth: depth}, nil
}

var errParseComment = errors.New("parse comment failed")
var startPosition, _ = common.NewPositionFromFEN(common.InitialPositionFen)

var (
	tagsRegex    = regexp.MustCompile(`\[[^\]]+\]`)
	tagPairRegex = regexp.MustCompile(`\[(\S+)\s+"(.*)"\]`)
)
