package ranking

import "time"

type Criterion struct {
	ID           string       `json:"id"`
	Key          CriterionKey `json:"key"`
	Name         string       `json:"name" validate:"required,max=120"`
	Weight       float64      `json:"weight" validate:"gte=0,lte=100"`
	Direction    string       `json:"direction" validate:"required,oneof=higher_is_better lower_is_better"`
	Active       bool         `json:"active"`
	DisplayOrder int          `json:"displayOrder"`
}

// RawScore is one measurement for an (employee, criterion, month) triple.
// NormalizedScore is nil until a ranking run for the month has written it.
type RawScore struct {
	ID              string    `json:"id"`
	EmployeeID      string    `json:"employeeId"`
	CriterionID     string    `json:"criterionId"`
	Period          time.Time `json:"period"`
	RawValue        float64   `json:"rawValue"`
	NormalizedScore *float64  `json:"normalizedScore,omitempty"`
}

type Employee struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Position   string `json:"position"`
	Active     bool   `json:"active"`
}

type Contribution struct {
	CriterionID     string  `json:"criterionId"`
	CriterionName   string  `json:"criterionName"`
	RawValue        float64 `json:"rawValue"`
	NormalizedScore float64 `json:"normalizedScore"`
	Weight          float64 `json:"weight"`
	Weighted        float64 `json:"weighted"`
}

type Result struct {
	EmployeeID    string         `json:"employeeId"`
	EmployeeName  string         `json:"employeeName"`
	Department    string         `json:"department"`
	Position      string         `json:"position"`
	TotalScore    float64        `json:"totalScore"`
	RankPosition  int            `json:"rankPosition"`
	PreviousRank  *int           `json:"previousRank,omitempty"`
	RankVariation *int           `json:"rankVariation,omitempty"`
	Contributions []Contribution `json:"contributions"`
	Strengths     []string       `json:"strengths"`
	Weaknesses    []string       `json:"weaknesses"`
	Suggestions   []Suggestion   `json:"suggestions"`
}

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Input struct {
	Period          Period
	Criteria        []Criterion
	RawScores       []RawScore
	Employees       []Employee
	PreviousRanking []Result
}

// Outcome is the full product of one computation. UpdatedRawScores holds
// copies of the period's raw-score records carrying their new normalized
// score; it is always empty for the consolidated period.
type Outcome struct {
	Period           Period
	Results          []Result
	UpdatedRawScores []RawScore
	Warnings         []Warning
}

func (o Outcome) HasWarning(code string) bool {
	for _, w := range o.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Snapshot is what callers of the service receive and what the cache holds.
type Snapshot struct {
	Period     Period    `json:"period"`
	Results    []Result  `json:"results"`
	Warnings   []Warning `json:"warnings,omitempty"`
	ComputedAt time.Time `json:"computedAt"`
	Cached     bool      `json:"cached"`
}

// Clone returns a deep copy; cached snapshots are handed out as clones.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Warnings = cloneSlice(s.Warnings)
	if s.Results != nil {
		out.Results = make([]Result, len(s.Results))
		for i, r := range s.Results {
			out.Results[i] = r.clone()
		}
	}
	return out
}

func (r Result) clone() Result {
	out := r
	if r.PreviousRank != nil {
		v := *r.PreviousRank
		out.PreviousRank = &v
	}
	if r.RankVariation != nil {
		v := *r.RankVariation
		out.RankVariation = &v
	}
	out.Contributions = cloneSlice(r.Contributions)
	out.Strengths = cloneSlice(r.Strengths)
	out.Weaknesses = cloneSlice(r.Weaknesses)
	out.Suggestions = cloneSlice(r.Suggestions)
	return out
}

func cloneSlice[T any](items []T) []T {
	if items == nil {
		return nil
	}
	return append(make([]T, 0, len(items)), items...)
}

type ScoreInput struct {
	EmployeeID  string  `json:"employeeId" validate:"required,uuid"`
	CriterionID string  `json:"criterionId" validate:"required,uuid"`
	Period      string  `json:"period" validate:"required"`
	RawValue    float64 `json:"rawValue"`
}

type WeightSummary struct {
	ActiveCount int     `json:"activeCount"`
	Total       float64 `json:"total"`
	Balanced    bool    `json:"balanced"`
}

// ScoreID is the deterministic key of a raw score: one record per
// employee, criterion and month. Callers pass canonical lowercase UUIDs.
func ScoreID(employeeID, criterionID string, p Period) string {
	return employeeID + ":" + criterionID + ":" + p.String()
}
