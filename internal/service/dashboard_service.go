package service

import (
	"context"
	"fmt"
	"kege_trainer_backend/internal/model"
	"kege_trainer_backend/internal/repository"
	"kege_trainer_backend/internal/util"
	"sort"
	"time"
)

// DashboardService 生成管理员面板数据，复用 StatsService 的尝试视图。
type DashboardService struct {
	Stats *StatsService
	Users UserStore
}

func NewDashboardService(stats *StatsService, users UserStore) *DashboardService {
	return &DashboardService{Stats: stats, Users: users}
}

// DashboardTotals 是各表的记录总数。
type DashboardTotals struct {
	Users    int64 `json:"users"`
	Tasks    int64 `json:"tasks"`
	Variants int64 `json:"variants"`
	Attempts int64 `json:"attempts"`
}

// TopPerformer 是窗口内平均分排名靠前的用户。
type TopPerformer struct {
	UserID        uint    `json:"userId"`
	Username      string  `json:"username"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	AverageScore  float64 `json:"averageScore"`
	AttemptsCount int     `json:"attemptsCount"`
}

// LatestAttempt 是全站最近结束的一次尝试。
type LatestAttempt struct {
	ID             uint      `json:"id"`
	UserID         uint      `json:"userId"`
	Username       string    `json:"username"`
	VariantSource  string    `json:"variantSource"`
	FinishedAt     time.Time `json:"finishedAt"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalTasks     int       `json:"totalTasks"`
	Score          float64   `json:"score"`
}

// WeeklyScore 是以周一为起点的一周平均分。
type WeeklyScore struct {
	WeekStart    string  `json:"weekStart"`
	WeekEnd      string  `json:"weekEnd"`
	AverageScore float64 `json:"averageScore"`
	AttemptCount int     `json:"attemptCount"`
}

// ActivityStats 统计最近 PeriodDays 天内新建的记录数。
type ActivityStats struct {
	NewUsers    int64 `json:"newUsers"`
	NewTasks    int64 `json:"newTasks"`
	NewVariants int64 `json:"newVariants"`
	NewAttempts int64 `json:"newAttempts"`
	PeriodDays  int   `json:"periodDays"`
}

// Dashboard 是管理员面板的完整响应。
type Dashboard struct {
	WindowDays        int             `json:"windowDays"`
	Totals            DashboardTotals `json:"totals"`
	RecentUsers       []model.User    `json:"recentUsers"`
	RecentTasks       []model.Task    `json:"recentTasks"`
	RecentVariants    []model.Variant `json:"recentVariants"`
	LatestAttempt     *LatestAttempt  `json:"latestAttempt"`
	ScoreDistribution map[string]int  `json:"scoreDistribution"`
	WeeklyScores      []WeeklyScore   `json:"weeklyScores"`
	TopPerformers     []TopPerformer  `json:"topPerformers"`
	Activity          ActivityStats   `json:"activity"`
}

var scoreBuckets = []struct {
	label string
	upper float64
}{
	{"0-20", 20},
	{"21-40", 40},
	{"41-60", 60},
	{"61-80", 80},
	{"81-100", 100},
}

func bucketFor(pct float64) string {
	for _, b := range scoreBuckets {
		if pct <= b.upper {
			return b.label
		}
	}
	return scoreBuckets[len(scoreBuckets)-1].label
}

// weekStart 返回 t 所在周的周一零点（UTC）。
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}

// Dashboard 返回管理员面板数据。days 只影响成绩分布和排行榜，<= 0 时使用配置值。
func (s *DashboardService) Dashboard(ctx context.Context, days int) (*Dashboard, error) {
	if days <= 0 {
		days = s.Stats.Settings().DashboardWindowDays
	}
	now := s.Stats.now().UTC()

	dash := &Dashboard{WindowDays: days}
	totals, err := s.totals(ctx)
	if err != nil {
		return nil, err
	}
	dash.Totals = *totals

	if err := s.recent(ctx, dash); err != nil {
		return nil, err
	}
	if dash.LatestAttempt, err = s.latestAttempt(ctx); err != nil {
		return nil, err
	}
	if err := s.activity(ctx, now, dash); err != nil {
		return nil, err
	}

	// 一次加载覆盖两个窗口的尝试，再各自按截止时间过滤
	windowCutoff := now.AddDate(0, 0, -days)
	weeklyCutoff := now.AddDate(0, 0, -7*util.DefaultWeeklyScoreWeeks)
	since := windowCutoff
	if weeklyCutoff.Before(since) {
		since = weeklyCutoff
	}
	attempts, err := s.Stats.Attempts.ListFinished(ctx, repository.AttemptFilter{Since: since})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	views, err := s.Stats.loadViews(ctx, attempts)
	if err != nil {
		return nil, err
	}

	// 没有作答的尝试不参与任何平均
	scored := make([]attemptView, 0, len(views))
	for _, v := range views {
		if len(v.rows) > 0 {
			scored = append(scored, v)
		}
	}

	inWindow := make([]attemptView, 0, len(scored))
	inWeeks := make([]attemptView, 0, len(scored))
	for _, v := range scored {
		if !v.attempt.FinishedAt.Before(windowCutoff) {
			inWindow = append(inWindow, v)
		}
		if !v.attempt.FinishedAt.Before(weeklyCutoff) {
			inWeeks = append(inWeeks, v)
		}
	}

	dash.ScoreDistribution = scoreDistribution(inWindow)
	dash.WeeklyScores = weeklyScores(inWeeks)
	if dash.TopPerformers, err = s.topPerformers(ctx, inWindow); err != nil {
		return nil, err
	}
	return dash, nil
}

func (s *DashboardService) totals(ctx context.Context) (*DashboardTotals, error) {
	var t DashboardTotals
	var err error
	if t.Users, err = s.Users.Count(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if t.Tasks, err = s.Stats.Variants.CountTasks(ctx); err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	if t.Variants, err = s.Stats.Variants.Count(ctx); err != nil {
		return nil, fmt.Errorf("count variants: %w", err)
	}
	if t.Attempts, err = s.Stats.Attempts.Count(ctx); err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	return &t, nil
}

func (s *DashboardService) recent(ctx context.Context, dash *Dashboard) error {
	var err error
	if dash.RecentUsers, err = s.Users.ListRecent(ctx, util.DefaultRecentItems); err != nil {
		return fmt.Errorf("recent users: %w", err)
	}
	if dash.RecentTasks, err = s.Stats.Variants.ListRecentTasks(ctx, util.DefaultRecentItems); err != nil {
		return fmt.Errorf("recent tasks: %w", err)
	}
	if dash.RecentVariants, err = s.Stats.Variants.ListRecent(ctx, util.DefaultRecentItems); err != nil {
		return fmt.Errorf("recent variants: %w", err)
	}
	return nil
}

// latestAttempt 不受时间窗口限制，没有已结束的尝试时返回 nil。
func (s *DashboardService) latestAttempt(ctx context.Context) (*LatestAttempt, error) {
	attempts, err := s.Stats.Attempts.ListFinished(ctx, repository.AttemptFilter{NewestFirst: true, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("latest attempt: %w", err)
	}
	if len(attempts) == 0 {
		return nil, nil
	}
	views, err := s.Stats.loadViews(ctx, attempts)
	if err != nil {
		return nil, err
	}
	v := &views[0]

	latest := &LatestAttempt{
		ID:             v.attempt.ID,
		UserID:         v.attempt.UserID,
		VariantSource:  variantSource(v.variant),
		FinishedAt:     *v.attempt.FinishedAt,
		CorrectAnswers: v.correctDisplayed(),
		TotalTasks:     v.displayTotal(),
		Score:          v.scorePct(),
	}
	users, err := s.Users.FindByIDs(ctx, []uint{v.attempt.UserID})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if len(users) > 0 {
		latest.Username = users[0].Username
	}
	return latest, nil
}

func (s *DashboardService) activity(ctx context.Context, now time.Time, dash *Dashboard) error {
	since := now.AddDate(0, 0, -util.DefaultActivityWindowDays)
	a := ActivityStats{PeriodDays: util.DefaultActivityWindowDays}
	var err error
	if a.NewUsers, err = s.Users.CountSince(ctx, since); err != nil {
		return fmt.Errorf("count new users: %w", err)
	}
	if a.NewTasks, err = s.Stats.Variants.CountTasksSince(ctx, since); err != nil {
		return fmt.Errorf("count new tasks: %w", err)
	}
	if a.NewVariants, err = s.Stats.Variants.CountSince(ctx, since); err != nil {
		return fmt.Errorf("count new variants: %w", err)
	}
	if a.NewAttempts, err = s.Stats.Attempts.CountStartedSince(ctx, since); err != nil {
		return fmt.Errorf("count new attempts: %w", err)
	}
	dash.Activity = a
	return nil
}

func scoreDistribution(views []attemptView) map[string]int {
	dist := make(map[string]int, len(scoreBuckets))
	for _, b := range scoreBuckets {
		dist[b.label] = 0
	}
	for i := range views {
		dist[bucketFor(views[i].scorePct())]++
	}
	return dist
}

func weeklyScores(views []attemptView) []WeeklyScore {
	type acc struct {
		sum   float64
		count int
	}
	byWeek := make(map[time.Time]*acc)
	for i := range views {
		start := weekStart(*views[i].attempt.FinishedAt)
		a, ok := byWeek[start]
		if !ok {
			a = &acc{}
			byWeek[start] = a
		}
		a.sum += views[i].scorePct()
		a.count++
	}

	starts := make([]time.Time, 0, len(byWeek))
	for start := range byWeek {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	out := make([]WeeklyScore, 0, len(starts))
	for _, start := range starts {
		a := byWeek[start]
		out = append(out, WeeklyScore{
			WeekStart:    start.Format(util.DateFormat),
			WeekEnd:      start.AddDate(0, 0, 6).Format(util.DateFormat),
			AverageScore: round(a.sum/float64(a.count), 2),
			AttemptCount: a.count,
		})
	}
	return out
}

func (s *DashboardService) topPerformers(ctx context.Context, views []attemptView) ([]TopPerformer, error) {
	type acc struct {
		sum   float64
		count int
	}
	byUser := make(map[uint]*acc)
	for i := range views {
		a, ok := byUser[views[i].attempt.UserID]
		if !ok {
			a = &acc{}
			byUser[views[i].attempt.UserID] = a
		}
		a.sum += views[i].scorePct()
		a.count++
	}

	performers := make([]TopPerformer, 0, len(byUser))
	userIDs := make([]uint, 0, len(byUser))
	for id, a := range byUser {
		userIDs = append(userIDs, id)
		performers = append(performers, TopPerformer{
			UserID:        id,
			AverageScore:  round(a.sum/float64(a.count), 2),
			AttemptsCount: a.count,
		})
	}
	sort.Slice(performers, func(i, j int) bool {
		if performers[i].AverageScore != performers[j].AverageScore {
			return performers[i].AverageScore > performers[j].AverageScore
		}
		return performers[i].UserID < performers[j].UserID
	})
	if len(performers) > util.DefaultTopPerformers {
		performers = performers[:util.DefaultTopPerformers]
	}

	users, err := s.Users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for i := range performers {
		for _, u := range users {
			if u.ID == performers[i].UserID {
				performers[i].Username = u.Username
				performers[i].FirstName = u.FirstName
				performers[i].LastName = u.LastName
				break
			}
		}
	}
	return performers, nil
}
