package ranking

import "fmt"

// CriterionKey tags a criterion with a well-known evaluation dimension so
// improvement advice does not depend on the display name.
type CriterionKey string

const (
	KeyCustom           CriterionKey = ""
	KeyAttendance       CriterionKey = "attendance"
	KeyPunctuality      CriterionKey = "punctuality"
	KeyProductivity     CriterionKey = "productivity"
	KeyQuality          CriterionKey = "quality"
	KeySafetyCompliance CriterionKey = "safety_compliance"
	KeyIncidents        CriterionKey = "incidents"
	KeyPPEUsage         CriterionKey = "ppe_usage"
	KeyTraining         CriterionKey = "training"
	KeyTeamwork         CriterionKey = "teamwork"
)

type SuggestionKind string

const (
	SuggestionSpecific SuggestionKind = "specific"
	SuggestionGeneric  SuggestionKind = "generic"
	SuggestionPositive SuggestionKind = "positive"
)

type Suggestion struct {
	Kind        SuggestionKind `json:"kind"`
	CriterionID string         `json:"criterionId,omitempty"`
	Text        string         `json:"text"`
}

const positiveSuggestion = "Keep up the consistent performance across all criteria."

var suggestionTable = map[CriterionKey]string{
	KeyAttendance:       "Reduce unplanned absences and plan leave ahead with the team lead.",
	KeyPunctuality:      "Arrive on time for shifts and meetings; review commute or schedule conflicts.",
	KeyProductivity:     "Agree on clear weekly targets and track output against them.",
	KeyQuality:          "Review rework causes with the supervisor and apply the quality checklist.",
	KeySafetyCompliance: "Refresh the site safety procedures and follow every step of the checklists.",
	KeyIncidents:        "Attend the incident-prevention briefing and report near misses early.",
	KeyPPEUsage:         "Wear the required protective equipment at all times in operational areas.",
	KeyTraining:         "Complete the pending mandatory training modules this month.",
	KeyTeamwork:         "Take part in team routines and share information proactively.",
}

func (k CriterionKey) Known() bool {
	if k == KeyCustom {
		return true
	}
	_, ok := suggestionTable[k]
	return ok
}

// KnownKeys lists the tagged dimensions with canned advice.
func KnownKeys() []CriterionKey {
	return []CriterionKey{
		KeyAttendance, KeyPunctuality, KeyProductivity, KeyQuality,
		KeySafetyCompliance, KeyIncidents, KeyPPEUsage, KeyTraining, KeyTeamwork,
	}
}

// SuggestionFor returns the advice for a weak criterion. Untagged or
// unrecognised keys yield the generic variant.
func SuggestionFor(c Criterion) Suggestion {
	if text, ok := suggestionTable[c.Key]; ok {
		return Suggestion{Kind: SuggestionSpecific, CriterionID: c.ID, Text: text}
	}
	return Suggestion{
		Kind:        SuggestionGeneric,
		CriterionID: c.ID,
		Text:        fmt.Sprintf("Improve performance in %s.", c.Name),
	}
}

func PositiveSuggestion() Suggestion {
	return Suggestion{Kind: SuggestionPositive, Text: positiveSuggestion}
}
