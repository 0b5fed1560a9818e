package auth

const (
	PermRankingRead    = "ranking.read"
	PermRankingRun     = "ranking.run"
	PermCriteriaRead   = "criteria.read"
	PermCriteriaWrite  = "criteria.write"
	PermScoresRead     = "scores.read"
	PermScoresWrite    = "scores.write"
	PermEmployeesRead  = "employees.read"
	PermEmployeesWrite = "employees.write"
	PermAuditRead      = "audit.read"
	PermSystemAdmin    = "admin.system"
)

var DefaultPermissions = []string{
	PermRankingRead,
	PermRankingRun,
	PermCriteriaRead,
	PermCriteriaWrite,
	PermScoresRead,
	PermScoresWrite,
	PermEmployeesRead,
	PermEmployeesWrite,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleViewer: {
		PermRankingRead,
		PermCriteriaRead,
	},
	RoleManager: {
		PermRankingRead,
		PermCriteriaRead,
		PermScoresRead,
		PermScoresWrite,
		PermEmployeesRead,
	},
	RoleHR: {
		PermRankingRead,
		PermRankingRun,
		PermCriteriaRead,
		PermCriteriaWrite,
		PermScoresRead,
		PermScoresWrite,
		PermEmployeesRead,
		PermEmployeesWrite,
		PermAuditRead,
	},
	RoleSystemAdmin: {
		PermSystemAdmin,
		PermAuditRead,
	},
}
