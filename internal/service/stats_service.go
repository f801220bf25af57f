package service

import (
	"context"
	"errors"
	"fmt"
	"kege_trainer_backend/internal/config"
	"kege_trainer_backend/internal/model"
	"kege_trainer_backend/internal/repository"
	"kege_trainer_backend/internal/scoring"
	"kege_trainer_backend/internal/util"
	"kege_trainer_backend/pkg/logger"
	"kege_trainer_backend/pkg/tracing"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatsService 基于已结束的尝试计算各类统计，设置可热更新。
type StatsService struct {
	Attempts AttemptStore
	Variants VariantStore
	Cache    SummaryCache

	mu       sync.RWMutex
	settings config.StatsConfig
	now      func() time.Time
}

func NewStatsService(attempts AttemptStore, variants VariantStore, cache SummaryCache, settings config.StatsConfig) *StatsService {
	s := &StatsService{
		Attempts: attempts,
		Variants: variants,
		Cache:    cache,
		now:      time.Now,
	}
	s.UpdateSettings(settings)
	return s
}

// UpdateSettings 在配置热加载时调用，非法值回落到默认值。
func (s *StatsService) UpdateSettings(settings config.StatsConfig) {
	if settings.PerformanceWindowDays <= 0 {
		settings.PerformanceWindowDays = util.DefaultPerformanceWindowDays
	}
	if settings.AttemptListLimit <= 0 {
		settings.AttemptListLimit = util.DefaultAttemptListLimit
	}
	if settings.DashboardWindowDays <= 0 {
		settings.DashboardWindowDays = util.DefaultDashboardWindowDays
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

func (s *StatsService) Settings() config.StatsConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// attemptView 是一次尝试及其变体、答案的物化视图。
type attemptView struct {
	attempt  model.Attempt
	variant  model.Variant
	slots    []int
	fullForm bool
	rows     []repository.AnswerRow
}

// displayTotal 是变体显示的题目数。
func (v *attemptView) displayTotal() int {
	return scoring.DisplayTaskCount(v.slots)
}

// correctDisplayed 统计答对的显示题目数；完整试卷中第 19 题代表三道显示题。
func (v *attemptView) correctDisplayed() int {
	correct := 0
	for _, row := range v.rows {
		if row.IsCorrect == nil || !*row.IsCorrect {
			continue
		}
		if v.fullForm && row.SlotNumber == scoring.GroupSlot {
			correct += scoring.GroupCells
		} else {
			correct++
		}
	}
	return correct
}

func (v *attemptView) scorePct() float64 {
	return percentage(v.correctDisplayed(), v.displayTotal())
}

func percentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(correct)/float64(total)*100, 2)
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// loadViews 批量加载尝试的变体、题号与答案，避免逐条查询。
func (s *StatsService) loadViews(ctx context.Context, attempts []model.Attempt) ([]attemptView, error) {
	if len(attempts) == 0 {
		return nil, nil
	}

	attemptIDs := make([]uint, 0, len(attempts))
	variantIDs := make([]uint, 0, len(attempts))
	seenVariant := make(map[uint]bool, len(attempts))
	for _, a := range attempts {
		attemptIDs = append(attemptIDs, a.ID)
		if !seenVariant[a.VariantID] {
			seenVariant[a.VariantID] = true
			variantIDs = append(variantIDs, a.VariantID)
		}
	}

	variants, err := s.Variants.FindByIDs(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}
	variantByID := make(map[uint]model.Variant, len(variants))
	for _, v := range variants {
		variantByID[v.ID] = v
	}

	slots, err := s.Variants.SlotNumbers(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("load variant slots: %w", err)
	}

	rows, err := s.Attempts.AnswerRows(ctx, attemptIDs)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	rowsByAttempt := make(map[uint][]repository.AnswerRow, len(attempts))
	for _, row := range rows {
		rowsByAttempt[row.AttemptID] = append(rowsByAttempt[row.AttemptID], row)
	}

	views := make([]attemptView, 0, len(attempts))
	for _, a := range attempts {
		variant, ok := variantByID[a.VariantID]
		if !ok {
			variant = model.Variant{BaseModel: model.BaseModel{ID: a.VariantID}}
		}
		views = append(views, attemptView{
			attempt:  a,
			variant:  variant,
			slots:    slots[a.VariantID],
			fullForm: scoring.IsFullForm(slots[a.VariantID]),
			rows:     rowsByAttempt[a.ID],
		})
	}
	return views, nil
}

func variantSource(v model.Variant) string {
	if v.Source != "" {
		return v.Source
	}
	return fmt.Sprintf("Variant #%d", v.ID)
}

// SlotResult 是汇总中某个题号的作答结果。
type SlotResult struct {
	Correct         *bool     `json:"correct"`
	UserAnswer      *string   `json:"userAnswer"`
	ReferenceAnswer string    `json:"referenceAnswer"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// AttemptSummary 是单次已结束尝试的结果，PrimaryScore 与 SecondaryScore 仅完整试卷有值。
type AttemptSummary struct {
	AttemptID         uint               `json:"attemptId"`
	VariantID         uint               `json:"variantId"`
	VariantSource     string             `json:"variantSource"`
	StartedAt         time.Time          `json:"startedAt"`
	FinishedAt        *time.Time         `json:"finishedAt"`
	DurationSeconds   int                `json:"durationSeconds"`
	TimeSpentSeconds  int64              `json:"timeSpentSeconds"`
	IsFullForm        bool               `json:"isFullForm"`
	Slots             map[int]SlotResult `json:"slots"`
	TotalCorrect      int                `json:"totalCorrect"`
	TotalDisplayTasks int                `json:"totalDisplayTasks"`
	PrimaryScore      *int               `json:"primaryScore"`
	SecondaryScore    *int               `json:"secondaryScore"`
}

// SummarizeAttempt 汇总已结束尝试的逐题结果；仅完整试卷计算原始分和百分制分。
func (s *StatsService) SummarizeAttempt(ctx context.Context, viewer Viewer, attemptID uint) (*AttemptSummary, error) {
	ctx, span := tracing.Tracer.Start(ctx, "StatsService.SummarizeAttempt")
	defer span.End()
	span.SetAttributes(attribute.Int64("attempt.id", int64(attemptID)))

	attempt, err := s.Attempts.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("find attempt %d: %w", attemptID, err)
	}
	if !viewer.canView(attempt.UserID) {
		return nil, util.ErrAttemptNotFound
	}
	if !attempt.IsFinished() {
		return nil, util.ErrAttemptNotFinished
	}

	views, err := s.loadViews(ctx, []model.Attempt{*attempt})
	if err != nil {
		return nil, err
	}
	view := views[0]

	summary := &AttemptSummary{
		AttemptID:        attempt.ID,
		VariantID:        attempt.VariantID,
		VariantSource:    variantSource(view.variant),
		StartedAt:        attempt.StartedAt,
		FinishedAt:       attempt.FinishedAt,
		DurationSeconds:  view.variant.Duration,
		TimeSpentSeconds: int64(attempt.FinishedAt.Sub(attempt.StartedAt).Seconds()),
		IsFullForm:       view.fullForm,
		Slots:            make(map[int]SlotResult, len(view.rows)),
	}

	correctBySlot := make(map[int]bool, len(view.rows))
	for _, row := range view.rows {
		summary.Slots[row.SlotNumber] = SlotResult{
			Correct:         row.IsCorrect,
			UserAnswer:      row.AnswerText,
			ReferenceAnswer: row.ReferenceAnswer,
			UpdatedAt:       row.UpdatedAt,
		}
		correctBySlot[row.SlotNumber] = row.IsCorrect != nil && *row.IsCorrect
	}

	for slot, ok := range correctBySlot {
		if !ok {
			continue
		}
		if view.fullForm && slot == scoring.GroupSlot {
			summary.TotalCorrect += scoring.GroupCells
		} else {
			summary.TotalCorrect++
		}
	}

	if !view.fullForm {
		summary.TotalDisplayTasks = len(summary.Slots)
		return summary, nil
	}

	summary.TotalDisplayTasks = scoring.FullFormDisplayTasks
	primary := scoring.PrimaryScore(correctBySlot)
	secondary, err := scoring.PrimaryToSecondary(primary)
	if err != nil {
		return nil, err
	}
	summary.PrimaryScore = &primary
	summary.SecondaryScore = &secondary
	return summary, nil
}

// AttemptListItem 是尝试列表中的一行，ScorePct 为显示题目的正确百分比。
type AttemptListItem struct {
	ID              uint       `json:"id"`
	VariantID       uint       `json:"variantId"`
	VariantSource   string     `json:"variantSource"`
	StartedAt       time.Time  `json:"startedAt"`
	FinishedAt      *time.Time `json:"finishedAt"`
	DurationSeconds int        `json:"durationSeconds"`
	CorrectAnswers  int        `json:"correctAnswers"`
	TotalTasks      int        `json:"totalTasks"`
	ScorePct        float64    `json:"score"`
	IsFullForm      bool       `json:"isFullForm"`
}

// ListUserAttempts 按结束时间倒序列出已结束的尝试；limit <= 0 时使用配置值。
func (s *StatsService) ListUserAttempts(ctx context.Context, userID uint, limit int) ([]AttemptListItem, error) {
	if limit <= 0 {
		limit = s.Settings().AttemptListLimit
	}
	attempts, err := s.Attempts.ListFinished(ctx, repository.AttemptFilter{
		UserID:      userID,
		Limit:       limit,
		NewestFirst: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	views, err := s.loadViews(ctx, attempts)
	if err != nil {
		return nil, err
	}

	items := make([]AttemptListItem, 0, len(views))
	for i := range views {
		v := &views[i]
		items = append(items, AttemptListItem{
			ID:              v.attempt.ID,
			VariantID:       v.attempt.VariantID,
			VariantSource:   variantSource(v.variant),
			StartedAt:       v.attempt.StartedAt,
			FinishedAt:      v.attempt.FinishedAt,
			DurationSeconds: v.variant.Duration,
			CorrectAnswers:  v.correctDisplayed(),
			TotalTasks:      v.displayTotal(),
			ScorePct:        v.scorePct(),
			IsFullForm:      v.fullForm,
		})
	}
	return items, nil
}

// SlotStat 是某个题号在窗口内的正确数、作答数与正确率。
type SlotStat struct {
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// SlotPerformance 中 Slots 按题号原子计分；GroupCells 将第 19 题的三个单元格
// 分别计入 19、20、21，仅供展示趋势。
type SlotPerformance struct {
	WindowDays int               `json:"windowDays"`
	Slots      map[int]*SlotStat `json:"slots"`
	GroupCells map[int]*SlotStat `json:"groupCells"`
}

// PerformanceBySlot 统计时间窗口内所有已结束尝试的逐题号正确率，不限于完整试卷。
func (s *StatsService) PerformanceBySlot(ctx context.Context, userID uint, days int) (*SlotPerformance, error) {
	ctx, span := tracing.Tracer.Start(ctx, "StatsService.PerformanceBySlot")
	defer span.End()

	if days <= 0 {
		days = s.Settings().PerformanceWindowDays
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)

	attempts, err := s.Attempts.ListFinished(ctx, repository.AttemptFilter{UserID: userID, Since: cutoff})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	ids := make([]uint, 0, len(attempts))
	for _, a := range attempts {
		ids = append(ids, a.ID)
	}
	rows, err := s.Attempts.AnswerRows(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	perf := &SlotPerformance{
		WindowDays: days,
		Slots:      make(map[int]*SlotStat, scoring.FullFormDisplayTasks),
		GroupCells: make(map[int]*SlotStat, scoring.GroupCells),
	}
	for n := 1; n <= scoring.FullFormDisplayTasks; n++ {
		perf.Slots[n] = &SlotStat{}
	}
	for i := 0; i < scoring.GroupCells; i++ {
		perf.GroupCells[scoring.GroupSlot+i] = &SlotStat{}
	}

	for _, row := range rows {
		stat, ok := perf.Slots[row.SlotNumber]
		if !ok {
			continue
		}
		stat.Total++
		if row.IsCorrect != nil && *row.IsCorrect {
			stat.Correct++
		}

		if row.SlotNumber == scoring.GroupSlot {
			text := ""
			if row.AnswerText != nil {
				text = *row.AnswerText
			}
			for i, match := range scoring.GroupCellMatches(text, row.ReferenceAnswer) {
				cell := perf.GroupCells[scoring.GroupSlot+i]
				cell.Total++
				if match {
					cell.Correct++
				}
			}
		}
	}

	for _, stat := range perf.Slots {
		stat.Percentage = percentage(stat.Correct, stat.Total)
	}
	for _, stat := range perf.GroupCells {
		stat.Percentage = percentage(stat.Correct, stat.Total)
	}
	return perf, nil
}

// SpeedPoint 是一次完整试卷尝试的用时与正确数。
type SpeedPoint struct {
	Date         string    `json:"date"`
	FinishedAt   time.Time `json:"finishedAt"`
	MinutesTaken float64   `json:"minutesTaken"`
	CorrectCount int       `json:"correctCount"`
	TotalCount   int       `json:"totalCount"`
}

// SpeedTrends 按结束时间升序返回完整试卷尝试的用时与正确数。
func (s *StatsService) SpeedTrends(ctx context.Context, userID uint) ([]SpeedPoint, error) {
	attempts, err := s.Attempts.ListFinished(ctx, repository.AttemptFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	views, err := s.loadViews(ctx, attempts)
	if err != nil {
		return nil, err
	}

	trends := make([]SpeedPoint, 0, len(views))
	for i := range views {
		v := &views[i]
		if !v.fullForm {
			continue
		}
		finished := *v.attempt.FinishedAt
		trends = append(trends, SpeedPoint{
			Date:         finished.Format(util.DateFormat),
			FinishedAt:   finished,
			MinutesTaken: round(finished.Sub(v.attempt.StartedAt).Minutes(), 1),
			CorrectCount: v.correctDisplayed(),
			TotalCount:   v.displayTotal(),
		})
	}
	return trends, nil
}

// UserSummary 是用户全部已结束尝试的汇总，会写入缓存。
type UserSummary struct {
	TotalAttempts    int     `json:"totalAttempts"`
	AverageScorePct  float64 `json:"averageScore"`
	BestScorePct     float64 `json:"bestScore"`
	FullFormAttempts int     `json:"fullFormAttempts"`
}

// Summary 汇总用户全部已结束的尝试；没有尝试时返回零值。
func (s *StatsService) Summary(ctx context.Context, userID uint) (*UserSummary, error) {
	ctx, span := tracing.Tracer.Start(ctx, "StatsService.Summary")
	defer span.End()

	if s.Cache != nil {
		var cached UserSummary
		hit, err := s.Cache.Get(ctx, userID, &cached)
		if err != nil {
			logger.Log.Warn("read summary cache failed", zap.Uint("userID", userID), zap.Error(err))
		} else if hit {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &cached, nil
		}
	}

	attempts, err := s.Attempts.ListFinished(ctx, repository.AttemptFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	views, err := s.loadViews(ctx, attempts)
	if err != nil {
		return nil, err
	}

	summary := &UserSummary{}
	if len(views) > 0 {
		total := 0.0
		for i := range views {
			pct := views[i].scorePct()
			total += pct
			if pct > summary.BestScorePct {
				summary.BestScorePct = pct
			}
			if views[i].fullForm {
				summary.FullFormAttempts++
			}
		}
		summary.TotalAttempts = len(views)
		summary.AverageScorePct = round(total/float64(len(views)), 2)
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, userID, summary); err != nil {
			logger.Log.Warn("write summary cache failed", zap.Uint("userID", userID), zap.Error(err))
		}
	}
	return summary, nil
}
