package selector

import (
	"sort"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
)

// Select picks the line whose evaluation best fits target. Any line inside the
// target outranks every line outside it; outside lines are ordered by distance to
// the nearest bound. Lines without moves or without a score are ignored.
func Select(lines []domain.CandidateLine, target domain.Range) (domain.CandidateLine, bool) {
	var ranked = Rank(lines, target)
	if len(ranked) == 0 {
		return domain.CandidateLine{}, false
	}
	return ranked[0], true
}

// Rank returns the usable lines in preference order.
func Rank(lines []domain.CandidateLine, target domain.Range) []domain.CandidateLine {
	var result = make([]domain.CandidateLine, 0, len(lines))
	for _, line := range lines {
		if len(line.Moves) == 0 || !line.Scored {
			continue
		}
		result = append(result, line)
	}
	sort.SliceStable(result, func(i, j int) bool {
		var inI = target.Contains(result[i].Eval)
		var inJ = target.Contains(result[j].Eval)
		if inI != inJ {
			return inI
		}
		if inI {
			return false
		}
		return target.Distance(result[i].Eval) < target.Distance(result[j].Eval)
	})
	return result
}
