package reports

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrJobRunNotFound = errors.New("job run not found")

type JobRunFilter struct {
	JobType     string
	Status      string
	StartedFrom *time.Time
	StartedTo   *time.Time
}

type JobRun struct {
	ID          string         `json:"id"`
	JobType     string         `json:"jobType"`
	Status      string         `json:"status"`
	Details     map[string]any `json:"details"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// Dashboard summarises the ranking inputs and outputs of one month.
type Dashboard struct {
	Period          string     `json:"period"`
	ActiveEmployees int        `json:"activeEmployees"`
	ActiveCriteria  int        `json:"activeCriteria"`
	WeightTotal     float64    `json:"weightTotal"`
	ScoresRecorded  int        `json:"scoresRecorded"`
	RankedEmployees int        `json:"rankedEmployees"`
	LastComputedAt  *time.Time `json:"lastComputedAt,omitempty"`
	LastJobStatus   string     `json:"lastJobStatus,omitempty"`
}

func decodeDetails(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	details := map[string]any{}
	if err := json.Unmarshal(raw, &details); err != nil {
		return map[string]any{
			"raw": string(raw),
		}
	}
	return details
}
