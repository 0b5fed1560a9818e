package ranking

import (
	"math"
	"reflect"
	"testing"
	"time"
)

var october = Month(2025, time.October)

func attendance(weight float64) Criterion {
	return Criterion{ID: "c-att", Key: KeyAttendance, Name: "Attendance", Weight: weight, Direction: DirectionHigherIsBetter, Active: true, DisplayOrder: 1}
}

func incidents(weight float64) Criterion {
	return Criterion{ID: "c-inc", Key: KeyIncidents, Name: "Incidents", Weight: weight, Direction: DirectionLowerIsBetter, Active: true, DisplayOrder: 2}
}

func staff(ids ...string) []Employee {
	out := make([]Employee, 0, len(ids))
	for _, id := range ids {
		out = append(out, Employee{ID: id, Name: "Employee " + id, Department: "Ops", Position: "Operator", Active: true})
	}
	return out
}

func raw(employeeID, criterionID string, period Period, value float64) RawScore {
	return RawScore{
		ID:          ScoreID(employeeID, criterionID, period),
		EmployeeID:  employeeID,
		CriterionID: criterionID,
		Period:      period.Start(),
		RawValue:    value,
	}
}

func contribution(t *testing.T, r Result, criterionID string) Contribution {
	t.Helper()
	for _, c := range r.Contributions {
		if c.CriterionID == criterionID {
			return c
		}
	}
	t.Fatalf("no contribution for %s in %+v", criterionID, r)
	return Contribution{}
}

func TestComputeTwoEmployeesOneCriterion(t *testing.T) {
	out := Compute(Input{
		Period:    october,
		Criteria:  []Criterion{attendance(100)},
		RawScores: []RawScore{raw("a", "c-att", october, 90), raw("b", "c-att", october, 70)},
		Employees: staff("a", "b"),
	})

	if len(out.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", out.Warnings)
	}
	if len(out.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out.Results))
	}
	first, second := out.Results[0], out.Results[1]
	if first.EmployeeID != "a" || first.TotalScore != 100 || first.RankPosition != 1 {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if second.EmployeeID != "b" || second.TotalScore != 0 || second.RankPosition != 2 {
		t.Fatalf("unexpected second result: %+v", second)
	}
	if got := contribution(t, first, "c-att").NormalizedScore; got != 100 {
		t.Fatalf("expected normalized 100, got %v", got)
	}
}

func TestComputeTieKeepsInputOrder(t *testing.T) {
	out := Compute(Input{
		Period:    october,
		Criteria:  []Criterion{attendance(100)},
		RawScores: []RawScore{raw("b", "c-att", october, 85), raw("a", "c-att", october, 85)},
		Employees: staff("a", "b"),
	})

	if len(out.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out.Results))
	}
	for i, want := range []string{"a", "b"} {
		r := out.Results[i]
		if r.EmployeeID != want || r.RankPosition != i+1 || r.TotalScore != 50 {
			t.Fatalf("result %d: got %+v", i, r)
		}
		if got := contribution(t, r, "c-att").NormalizedScore; got != NeutralScore {
			t.Fatalf("expected neutral midpoint, got %v", got)
		}
	}
}

func TestComputeLowerIsBetterInverts(t *testing.T) {
	out := Compute(Input{
		Period:    october,
		Criteria:  []Criterion{incidents(100)},
		RawScores: []RawScore{raw("a", "c-inc", october, 0), raw("b", "c-inc", october, 4), raw("c", "c-inc", october, 2)},
		Employees: staff("a", "b", "c"),
	})

	byID := map[string]Result{}
	for _, r := range out.Results {
		byID[r.EmployeeID] = r
	}
	if got := contribution(t, byID["a"], "c-inc").NormalizedScore; got != 100 {
		t.Fatalf("fewest incidents should normalize to 100, got %v", got)
	}
	if got := contribution(t, byID["b"], "c-inc").NormalizedScore; got != 0 {
		t.Fatalf("most incidents should normalize to 0, got %v", got)
	}
	if got := contribution(t, byID["c"], "c-inc").NormalizedScore; got != 50 {
		t.Fatalf("midpoint should normalize to 50, got %v", got)
	}
}

func TestComputeWeightedTotalAndRanking(t *testing.T) {
	criteria := []Criterion{attendance(60), incidents(40)}
	scores := []RawScore{
		raw("a", "c-att", october, 20), raw("a", "c-inc", october, 1),
		raw("b", "c-att", october, 25), raw("b", "c-inc", october, 3),
		raw("c", "c-att", october, 22), raw("c", "c-inc", october, 0),
		raw("d", "c-att", october, 21),
	}
	out := Compute(Input{Period: october, Criteria: criteria, RawScores: scores, Employees: staff("a", "b", "c", "d")})

	if len(out.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(out.Results))
	}
	seen := map[int]bool{}
	for i, r := range out.Results {
		var sum float64
		for _, c := range r.Contributions {
			if c.NormalizedScore < 0 || c.NormalizedScore > 100 {
				t.Fatalf("normalized out of range: %+v", c)
			}
			sum += c.NormalizedScore * c.Weight / 100
		}
		if math.Abs(sum-r.TotalScore) > 0.01 {
			t.Fatalf("total %v does not match weighted sum %v", r.TotalScore, sum)
		}
		if i > 0 && out.Results[i-1].TotalScore < r.TotalScore {
			t.Fatalf("results not sorted descending at %d", i)
		}
		seen[r.RankPosition] = true
	}
	for pos := 1; pos <= 4; pos++ {
		if !seen[pos] {
			t.Fatalf("rank %d missing", pos)
		}
	}
}

func TestComputeMissingValuesScoreZero(t *testing.T) {
	criteria := []Criterion{attendance(50), incidents(50)}
	scores := []RawScore{raw("a", "c-att", october, 10), raw("b", "c-att", october, 5)}
	out := Compute(Input{Period: october, Criteria: criteria, RawScores: scores, Employees: staff("a", "b", "c")})

	for _, r := range out.Results {
		inc := contribution(t, r, "c-inc")
		if inc.RawValue != 0 || inc.NormalizedScore != 0 {
			t.Fatalf("criterion without values should contribute 0, got %+v", inc)
		}
	}
	last := out.Results[2]
	if last.EmployeeID != "c" {
		t.Fatalf("employee without submissions should rank last, got %+v", last)
	}
	if att := contribution(t, last, "c-att"); att.RawValue != 0 || att.NormalizedScore != 0 {
		t.Fatalf("missing submission should be raw 0 and normalized 0, got %+v", att)
	}
}

func TestComputePreviousRankVariation(t *testing.T) {
	previous := []Result{
		{EmployeeID: "a", RankPosition: 1},
		{EmployeeID: "b", RankPosition: 3},
	}
	out := Compute(Input{
		Period:          october,
		Criteria:        []Criterion{attendance(100)},
		RawScores:       []RawScore{raw("a", "c-att", october, 1), raw("b", "c-att", october, 9), raw("c", "c-att", october, 5)},
		Employees:       staff("a", "b", "c"),
		PreviousRanking: previous,
	})

	byID := map[string]Result{}
	for _, r := range out.Results {
		byID[r.EmployeeID] = r
	}
	b := byID["b"]
	if b.PreviousRank == nil || *b.PreviousRank != 3 || b.RankVariation == nil || *b.RankVariation != 2 {
		t.Fatalf("expected b to climb 2 places, got %+v", b)
	}
	a := byID["a"]
	if a.RankVariation == nil || *a.RankVariation != -2 {
		t.Fatalf("expected a to drop 2 places, got %+v", a)
	}
	if c := byID["c"]; c.PreviousRank != nil || c.RankVariation != nil {
		t.Fatalf("new entrant should have no previous rank, got %+v", c)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	in := Input{
		Period:    october,
		Criteria:  []Criterion{attendance(70), incidents(30)},
		RawScores: []RawScore{raw("a", "c-att", october, 3), raw("b", "c-att", october, 7), raw("a", "c-inc", october, 2), raw("b", "c-inc", october, 1)},
		Employees: staff("a", "b"),
	}
	first := Compute(in)
	second := Compute(in)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated computation differs:\n%+v\n%+v", first, second)
	}
}

func TestComputeEmptyInputs(t *testing.T) {
	out := Compute(Input{Period: october, Employees: staff("a")})
	if len(out.Results) != 0 || !out.HasWarning(WarningNoActiveCriteria) {
		t.Fatalf("expected empty outcome with warning, got %+v", out)
	}

	inactive := attendance(100)
	inactive.Active = false
	out = Compute(Input{Period: october, Criteria: []Criterion{inactive}, Employees: staff("a")})
	if len(out.Results) != 0 || !out.HasWarning(WarningNoActiveCriteria) {
		t.Fatalf("inactive criteria should count as none, got %+v", out)
	}

	out = Compute(Input{Period: october, Criteria: []Criterion{attendance(100)}})
	if len(out.Results) != 0 || len(out.UpdatedRawScores) != 0 || len(out.Warnings) != 0 {
		t.Fatalf("expected empty outcome without employees, got %+v", out)
	}
}

func TestComputeWeightSumWarning(t *testing.T) {
	out := Compute(Input{
		Period:    october,
		Criteria:  []Criterion{attendance(30), incidents(30)},
		RawScores: []RawScore{raw("a", "c-att", october, 5), raw("b", "c-att", october, 1)},
		Employees: staff("a", "b"),
	})
	if !out.HasWarning(WarningWeightSum) {
		t.Fatalf("expected weight sum warning, got %+v", out.Warnings)
	}
	if out.Results[0].TotalScore != 30 {
		t.Fatalf("total should not be renormalized, got %v", out.Results[0].TotalScore)
	}
}

func TestComputeIgnoresInactiveEmployees(t *testing.T) {
	employees := staff("a", "b", "c")
	employees[1].Active = false
	out := Compute(Input{
		Period:    october,
		Criteria:  []Criterion{attendance(100)},
		RawScores: []RawScore{raw("a", "c-att", october, 10), raw("b", "c-att", october, 100), raw("c", "c-att", october, 0)},
		Employees: employees,
	})
	if len(out.Results) != 2 {
		t.Fatalf("expected 2 ranked employees, got %d", len(out.Results))
	}
	if got := contribution(t, out.Results[0], "c-att").NormalizedScore; out.Results[0].EmployeeID != "a" || got != 100 {
		t.Fatalf("inactive employee should not shape the cohort, got %+v", out.Results[0])
	}
	for _, rs := range out.UpdatedRawScores {
		if rs.EmployeeID == "b" {
			t.Fatalf("inactive employee score should not be written back: %+v", rs)
		}
	}
}

func TestComputeWriteBackIsExplicit(t *testing.T) {
	september := october.Previous()
	scores := []RawScore{
		raw("a", "c-att", october, 10),
		raw("b", "c-att", october, 20),
		raw("a", "c-att", september, 99),
	}
	out := Compute(Input{Period: october, Criteria: []Criterion{attendance(100)}, RawScores: scores, Employees: staff("a", "b")})

	for _, rs := range scores {
		if rs.NormalizedScore != nil {
			t.Fatalf("input raw scores must not be mutated: %+v", rs)
		}
	}
	if len(out.UpdatedRawScores) != 2 {
		t.Fatalf("expected 2 updated raw scores, got %+v", out.UpdatedRawScores)
	}
	want := map[string]float64{"a": 0, "b": 100}
	for _, rs := range out.UpdatedRawScores {
		if !october.Contains(rs.Period) {
			t.Fatalf("out-of-period record written back: %+v", rs)
		}
		if rs.NormalizedScore == nil || *rs.NormalizedScore != want[rs.EmployeeID] {
			t.Fatalf("unexpected normalized score for %s: %+v", rs.EmployeeID, rs.NormalizedScore)
		}
	}
}

func TestComputeConsolidatedSumsAcrossPeriods(t *testing.T) {
	september := october.Previous()
	scores := []RawScore{
		raw("a", "c-att", september, 10), raw("a", "c-att", october, 10),
		raw("b", "c-att", september, 5), raw("b", "c-att", october, 25),
	}
	out := Compute(Input{
		Period:          Consolidated(),
		Criteria:        []Criterion{attendance(100)},
		RawScores:       scores,
		Employees:       staff("a", "b"),
		PreviousRanking: []Result{{EmployeeID: "a", RankPosition: 1}},
	})

	if len(out.UpdatedRawScores) != 0 {
		t.Fatalf("consolidated must not write back, got %+v", out.UpdatedRawScores)
	}
	top := out.Results[0]
	if top.EmployeeID != "b" || contribution(t, top, "c-att").RawValue != 30 {
		t.Fatalf("expected b with summed raw 30 on top, got %+v", top)
	}
	for _, r := range out.Results {
		if r.PreviousRank != nil {
			t.Fatalf("consolidated must skip period comparison, got %+v", r)
		}
	}
}

func TestComputeAnnotations(t *testing.T) {
	custom := Criterion{ID: "c-5s", Name: "Workplace 5S", Weight: 20, Direction: DirectionHigherIsBetter, Active: true, DisplayOrder: 3}
	criteria := []Criterion{attendance(40), incidents(40), custom}
	scores := []RawScore{
		raw("a", "c-att", october, 10), raw("a", "c-inc", october, 0), raw("a", "c-5s", october, 9),
		raw("b", "c-att", october, 2), raw("b", "c-inc", october, 5), raw("b", "c-5s", october, 1),
	}
	out := Compute(Input{Period: october, Criteria: criteria, RawScores: scores, Employees: staff("a", "b")})

	a, b := out.Results[0], out.Results[1]
	if !reflect.DeepEqual(a.Strengths, []string{"Attendance", "Incidents", "Workplace 5S"}) || len(a.Weaknesses) != 0 {
		t.Fatalf("unexpected annotation for a: %+v", a)
	}
	if len(a.Suggestions) != 1 || a.Suggestions[0].Kind != SuggestionPositive {
		t.Fatalf("expected a single positive suggestion, got %+v", a.Suggestions)
	}

	if !reflect.DeepEqual(b.Weaknesses, []string{"Attendance", "Incidents", "Workplace 5S"}) || len(b.Strengths) != 0 {
		t.Fatalf("unexpected annotation for b: %+v", b)
	}
	kinds := []SuggestionKind{SuggestionSpecific, SuggestionSpecific, SuggestionGeneric}
	for i, s := range b.Suggestions {
		if s.Kind != kinds[i] {
			t.Fatalf("suggestion %d: expected %s, got %+v", i, kinds[i], s)
		}
	}
	if b.Suggestions[2].Text != "Improve performance in Workplace 5S." {
		t.Fatalf("unexpected generic text %q", b.Suggestions[2].Text)
	}
}

func TestComputeOrdersContributionsByDisplayOrder(t *testing.T) {
	att := attendance(50)
	att.DisplayOrder = 9
	out := Compute(Input{
		Period:    october,
		Criteria:  []Criterion{att, incidents(50)},
		RawScores: []RawScore{raw("a", "c-att", october, 1)},
		Employees: staff("a"),
	})
	got := []string{out.Results[0].Contributions[0].CriterionID, out.Results[0].Contributions[1].CriterionID}
	if !reflect.DeepEqual(got, []string{"c-inc", "c-att"}) {
		t.Fatalf("unexpected contribution order %v", got)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize(nil, DirectionHigherIsBetter); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
	got := Normalize(map[string]float64{"a": 1, "b": 2, "c": 4}, DirectionHigherIsBetter)
	if got["a"] != 0 || got["c"] != 100 || got["b"] != 33.33 {
		t.Fatalf("unexpected normalization %v", got)
	}
	got = Normalize(map[string]float64{"a": -3.5}, DirectionLowerIsBetter)
	if got["a"] != NeutralScore {
		t.Fatalf("single value should be neutral, got %v", got)
	}
}
