package models

// WindowStats aggregates run outcomes over one time window
type WindowStats struct {
	TotalRuns   int
	Total       int
	Success     int
	Failed      int
	AlreadyDone int
}

// CheckinStats combines the standard statistics windows served to the
// dashboard and API collaborators
type CheckinStats struct {
	AllTime      WindowStats
	Recent7Days  WindowStats
	Recent30Days WindowStats
	Today        WindowStats
	TotalReward  int64
}

// DailySummary is the per-date token ledger rollup
type DailySummary struct {
	Date    string
	Earned  int64
	Spent   int64
	Net     int64
	Records int
}

// LedgerStats summarizes a single account's stored transaction records
type LedgerStats struct {
	Email        string
	TotalRecords int
	TotalEarned  int64
	TotalSpent   int64
	NetTokens    int64
}
