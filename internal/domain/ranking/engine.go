package ranking

import (
	"fmt"
	"math"
	"sort"
)

type cell struct {
	employeeID  string
	criterionID string
}

// Compute turns raw scores into an ordered, annotated ranking. It is a pure
// function of its input: persistence of UpdatedRawScores and Results is left
// to the caller.
func Compute(in Input) Outcome {
	out := Outcome{Period: in.Period}

	criteria := ActiveCriteria(in.Criteria)
	if len(criteria) == 0 {
		out.Warnings = append(out.Warnings, Warning{
			Code:    WarningNoActiveCriteria,
			Message: "no active criteria configured",
		})
		return out
	}
	if total := WeightTotal(criteria); math.Abs(total-ExpectedWeightSum) > WeightTolerance {
		out.Warnings = append(out.Warnings, Warning{
			Code:    WarningWeightSum,
			Message: fmt.Sprintf("active criteria weights sum to %.2f, expected %.0f", total, ExpectedWeightSum),
		})
	}

	employees := activeEmployees(in.Employees)
	if len(employees) == 0 {
		return out
	}

	values, sources := collect(in, criteria, employees)

	normalized := make(map[string]map[string]float64, len(criteria))
	for _, c := range criteria {
		normalized[c.ID] = Normalize(values[c.ID], c.Direction)
	}

	if !in.Period.IsConsolidated() {
		out.UpdatedRawScores = writeBack(in.RawScores, sources, normalized)
	}

	results := make([]Result, 0, len(employees))
	for _, e := range employees {
		results = append(results, score(e, criteria, values, normalized))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalScore > results[j].TotalScore
	})
	for i := range results {
		results[i].RankPosition = i + 1
	}

	if !in.Period.IsConsolidated() {
		applyPrevious(results, in.PreviousRanking)
	}
	for i := range results {
		annotate(&results[i], criteria)
	}

	out.Results = results
	return out
}

// ActiveCriteria keeps active criteria ordered by display order.
func ActiveCriteria(all []Criterion) []Criterion {
	out := make([]Criterion, 0, len(all))
	for _, c := range all {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DisplayOrder < out[j].DisplayOrder
	})
	return out
}

func WeightTotal(criteria []Criterion) float64 {
	var total float64
	for _, c := range criteria {
		total += c.Weight
	}
	return round2(total)
}

func activeEmployees(all []Employee) []Employee {
	out := make([]Employee, 0, len(all))
	for _, e := range all {
		if e.Active {
			out = append(out, e)
		}
	}
	return out
}

// collect builds the per-criterion cohort of submitted raw values. For a
// month a later record for the same cell replaces an earlier one; for the
// consolidated period values are summed across months.
func collect(in Input, criteria []Criterion, employees []Employee) (map[string]map[string]float64, map[cell]int) {
	ranked := make(map[string]bool, len(employees))
	for _, e := range employees {
		ranked[e.ID] = true
	}
	values := make(map[string]map[string]float64, len(criteria))
	for _, c := range criteria {
		values[c.ID] = map[string]float64{}
	}

	sources := map[cell]int{}
	for i, rs := range in.RawScores {
		cohort, ok := values[rs.CriterionID]
		if !ok || !ranked[rs.EmployeeID] {
			continue
		}
		if in.Period.IsConsolidated() {
			cohort[rs.EmployeeID] += rs.RawValue
			continue
		}
		if !in.Period.Contains(rs.Period) {
			continue
		}
		cohort[rs.EmployeeID] = rs.RawValue
		sources[cell{rs.EmployeeID, rs.CriterionID}] = i
	}
	return values, sources
}

func writeBack(raw []RawScore, sources map[cell]int, normalized map[string]map[string]float64) []RawScore {
	indexes := make([]int, 0, len(sources))
	for _, idx := range sources {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	out := make([]RawScore, 0, len(indexes))
	for _, idx := range indexes {
		rs := raw[idx]
		n := normalized[rs.CriterionID][rs.EmployeeID]
		rs.NormalizedScore = &n
		out = append(out, rs)
	}
	return out
}

func score(e Employee, criteria []Criterion, values, normalized map[string]map[string]float64) Result {
	r := Result{
		EmployeeID:    e.ID,
		EmployeeName:  e.Name,
		Department:    e.Department,
		Position:      e.Position,
		Contributions: make([]Contribution, 0, len(criteria)),
	}
	var total float64
	for _, c := range criteria {
		raw := values[c.ID][e.ID]
		n := normalized[c.ID][e.ID]
		weighted := n * c.Weight / 100
		total += weighted
		r.Contributions = append(r.Contributions, Contribution{
			CriterionID:     c.ID,
			CriterionName:   c.Name,
			RawValue:        raw,
			NormalizedScore: n,
			Weight:          c.Weight,
			Weighted:        round2(weighted),
		})
	}
	r.TotalScore = round2(total)
	return r
}

func applyPrevious(results []Result, previous []Result) {
	if len(previous) == 0 {
		return
	}
	prevRank := make(map[string]int, len(previous))
	for _, p := range previous {
		prevRank[p.EmployeeID] = p.RankPosition
	}
	for i := range results {
		prev, ok := prevRank[results[i].EmployeeID]
		if !ok || prev <= 0 {
			continue
		}
		variation := prev - results[i].RankPosition
		results[i].PreviousRank = &prev
		results[i].RankVariation = &variation
	}
}

func annotate(r *Result, criteria []Criterion) {
	r.Strengths = []string{}
	r.Weaknesses = []string{}
	r.Suggestions = []Suggestion{}
	for i, c := range criteria {
		n := r.Contributions[i].NormalizedScore
		switch {
		case n >= StrengthThreshold:
			r.Strengths = append(r.Strengths, c.Name)
		case n < WeaknessThreshold:
			r.Weaknesses = append(r.Weaknesses, c.Name)
			r.Suggestions = append(r.Suggestions, SuggestionFor(c))
		}
	}
	if len(r.Weaknesses) == 0 {
		r.Suggestions = append(r.Suggestions, PositiveSuggestion())
	}
}
