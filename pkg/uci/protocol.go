package uci

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	CmdUci        = "uci"
	CmdIsReady    = "isready"
	CmdNewGame    = "ucinewgame"
	CmdStop       = "stop"
	CmdQuit       = "quit"
	TokenUciOk    = "uciok"
	TokenReadyOk  = "readyok"
	TokenBestMove = "bestmove"
	TokenInfo     = "info"
)

func PositionCommand(fen string, moves []string) string {
	var sb = &strings.Builder{}
	if fen == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		fmt.Fprintf(sb, "position fen %v", fen)
	}
	if len(moves) != 0 {
		sb.WriteString(" moves")
		for _, move := range moves {
			sb.WriteString(" ")
			sb.WriteString(move)
		}
	}
	return sb.String()
}

func GoCommand(limits Limits) string {
	var sb = &strings.Builder{}
	sb.WriteString("go")
	if limits.Infinite {
		sb.WriteString(" infinite")
		return sb.String()
	}
	if limits.Depth > 0 {
		fmt.Fprintf(sb, " depth %v", limits.Depth)
	}
	if limits.MoveTime > 0 {
		fmt.Fprintf(sb, " movetime %v", limits.MoveTime)
	}
	if limits.Nodes > 0 {
		fmt.Fprintf(sb, " nodes %v", limits.Nodes)
	}
	if sb.Len() == len("go") {
		sb.WriteString(" infinite")
	}
	return sb.String()
}

func SetOptionCommand(name, value string) string {
	if value == "" {
		return fmt.Sprintf("setoption name %v", name)
	}
	return fmt.Sprintf("setoption name %v value %v", name, value)
}

// ParseLine classifies one line of engine output. Unknown or malformed tokens are
// skipped; they never make the whole line fail.
func ParseLine(line string) Record {
	var fields = strings.Fields(line)
	var rec = Record{Raw: line}
	if len(fields) == 0 {
		return rec
	}
	switch fields[0] {
	case TokenInfo:
		rec.Kind = RecordInfo
		rec.Info = parseInfo(fields[1:])
	case TokenBestMove:
		rec.Kind = RecordBestMove
		rec.BestMove = parseBestMove(fields[1:])
	case "id":
		rec.Kind = RecordID
		if len(fields) >= 2 {
			rec.Name = fields[1]
			rec.Value = strings.Join(fields[2:], " ")
		}
	case "option":
		rec.Kind = RecordOption
		var nameIndex = findIndexString(fields, "name")
		var typeIndex = findIndexString(fields, "type")
		if nameIndex >= 0 && typeIndex > nameIndex {
			rec.Name = strings.Join(fields[nameIndex+1:typeIndex], " ")
			rec.Value = strings.Join(fields[typeIndex+1:], " ")
		}
	case TokenUciOk:
		rec.Kind = RecordUciOk
	case TokenReadyOk:
		rec.Kind = RecordReadyOk
	}
	return rec
}

func parseBestMove(args []string) (result BestMove) {
	if len(args) >= 1 {
		result.Move = args[0]
	}
	if len(args) >= 3 && args[1] == "ponder" {
		result.Ponder = args[2]
	}
	return
}

func parseInfo(args []string) (result Info) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if v, ok := intArg(args, i+1); ok {
				result.Depth = v
				result.Fields |= FieldDepth
				i++
			}
		case "seldepth":
			if v, ok := intArg(args, i+1); ok {
				result.SelDepth = v
				result.Fields |= FieldSelDepth
				i++
			}
		case "multipv":
			if v, ok := intArg(args, i+1); ok && v >= 1 {
				result.MultiPV = v
				result.Fields |= FieldMultiPV
				i++
			}
		case "nodes":
			if v, ok := int64Arg(args, i+1); ok {
				result.Nodes = v
				result.Fields |= FieldNodes
				i++
			}
		case "time":
			if v, ok := int64Arg(args, i+1); ok {
				result.Time = v
				result.Fields |= FieldTime
				i++
			}
		case "nps":
			if v, ok := int64Arg(args, i+1); ok {
				result.NPS = v
				result.Fields |= FieldNPS
				i++
			}
		case "hashfull":
			if v, ok := intArg(args, i+1); ok {
				result.HashFull = v
				result.Fields |= FieldHashFull
				i++
			}
		case "currmove":
			if i+1 < len(args) {
				result.CurrMove = args[i+1]
				result.Fields |= FieldCurrMove
				i++
			}
		case "score":
			if i+2 >= len(args) {
				continue
			}
			var v, err = strconv.Atoi(args[i+2])
			if err != nil {
				continue
			}
			switch args[i+1] {
			case "cp":
				result.Score = Score{Centipawns: v}
				result.Fields |= FieldScore
				i += 2
			case "mate":
				result.Score = Score{Mate: v}
				result.Fields |= FieldScore
				i += 2
			}
			if i+1 < len(args) && (args[i+1] == "lowerbound" || args[i+1] == "upperbound") {
				result.Bound = args[i+1]
				i++
			}
		case "pv":
			var pv = make([]string, 0, len(args)-i-1)
			for _, token := range args[i+1:] {
				if !isMoveToken(token) {
					break
				}
				pv = append(pv, token)
			}
			if len(pv) != 0 {
				result.PV = pv
				result.Fields |= FieldPV
			}
			i += len(pv)
		case "string":
			result.String = strings.Join(args[i+1:], " ")
			return
		}
	}
	return
}

func intArg(args []string, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	var v, err = strconv.Atoi(args[i])
	if err != nil {
		return 0, false
	}
	return v, true
}

func int64Arg(args []string, i int) (int64, bool) {
	if i >= len(args) {
		return 0, false
	}
	var v, err = strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// isMoveToken accepts long algebraic moves such as e2e4 or a7a8q.
func isMoveToken(s string) bool {
	if len(s) != 4 && len(s) != 5 {
		return false
	}
	if s[0] < 'a' || s[0] > 'h' || s[2] < 'a' || s[2] > 'h' {
		return false
	}
	if s[1] < '1' || s[1] > '8' || s[3] < '1' || s[3] > '8' {
		return false
	}
	return len(s) == 4 || strings.IndexByte("nbrq", s[4]) >= 0
}

func findIndexString(slice []string, value string) int {
	for p, v := range slice {
		if v == value {
			return p
		}
	}
	return -1
}
