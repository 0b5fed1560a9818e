package ranking

const (
	DirectionHigherIsBetter = "higher_is_better"
	DirectionLowerIsBetter  = "lower_is_better"

	ConsolidatedKey = "consolidated"

	StrengthThreshold = 80.0
	WeaknessThreshold = 50.0
	NeutralScore      = 50.0
	MaxScore          = 100.0

	ExpectedWeightSum = 100.0
	WeightTolerance   = 0.01

	DefaultBatchSize = 400

	WarningNoActiveCriteria = "no_active_criteria"
	WarningWeightSum        = "weight_sum"

	KindMonthly      = "monthly"
	KindConsolidated = "consolidated"
)
