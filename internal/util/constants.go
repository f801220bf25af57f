package util

const (
	DateFormat = "2006-01-02"
)

// 统计相关默认值
const (
	DefaultAttemptListLimit      = 50
	DefaultPerformanceWindowDays = 90
	DefaultDashboardWindowDays   = 30
	DefaultTopPerformers         = 5
	DefaultRecentItems           = 5
	DefaultActivityWindowDays    = 7
	DefaultWeeklyScoreWeeks      = 4
)
