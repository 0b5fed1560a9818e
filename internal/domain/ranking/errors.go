package ranking

import "errors"

var (
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrInvalidCriterion = errors.New("invalid criterion")
	ErrInvalidScore     = errors.New("invalid score")
	ErrNotFound         = errors.New("not found")
)
