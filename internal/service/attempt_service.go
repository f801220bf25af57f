package service

import (
	"context"
	"errors"
	"fmt"
	"kege_trainer_backend/internal/model"
	"kege_trainer_backend/internal/repository"
	"kege_trainer_backend/internal/scoring"
	"kege_trainer_backend/internal/util"
	"kege_trainer_backend/pkg/logger"
	"kege_trainer_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttemptService 负责尝试的开始、作答与结束。
type AttemptService struct {
	Attempts AttemptStore
	Variants VariantStore
	Cache    SummaryCache
	now      func() time.Time
}

func NewAttemptService(attempts AttemptStore, variants VariantStore, cache SummaryCache) *AttemptService {
	return &AttemptService{
		Attempts: attempts,
		Variants: variants,
		Cache:    cache,
		now:      time.Now,
	}
}

// Start 返回用户在该变体上的尝试，不存在时创建。每个 (用户, 变体) 只有一次尝试。
func (s *AttemptService) Start(ctx context.Context, userID, variantID uint) (*model.Attempt, error) {
	if _, err := s.Variants.FindByID(ctx, variantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVariantNotFound
		}
		return nil, fmt.Errorf("find variant %d: %w", variantID, err)
	}

	existing, err := s.Attempts.FindByUserAndVariant(ctx, userID, variantID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find attempt: %w", err)
	}

	attempt := &model.Attempt{
		UserID:    userID,
		VariantID: variantID,
		StartedAt: s.now().UTC(),
	}
	if err := s.Attempts.Create(ctx, attempt); err != nil {
		// 并发创建时唯一索引冲突，返回已存在的那一条
		if existing, findErr := s.Attempts.FindByUserAndVariant(ctx, userID, variantID); findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	logger.Log.Info("attempt started",
		zap.Uint("attemptID", attempt.ID),
		zap.Uint("userID", userID),
		zap.Uint("variantID", variantID),
	)
	return attempt, nil
}

func (s *AttemptService) findAttempt(ctx context.Context, viewer Viewer, attemptID uint) (*model.Attempt, error) {
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
	return attempt, nil
}

// SaveAnswer 评分并保存答案。已结束的尝试返回 ErrAttemptFinished。
func (s *AttemptService) SaveAnswer(ctx context.Context, userID, attemptID, variantTaskID uint, text *string) (*model.AttemptAnswer, error) {
	attempt, err := s.findAttempt(ctx, Viewer{UserID: userID}, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.IsFinished() {
		return nil, util.ErrAttemptFinished
	}

	binding, err := s.Variants.FindBinding(ctx, variantTaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrBindingNotFound
		}
		return nil, fmt.Errorf("find variant task %d: %w", variantTaskID, err)
	}
	if binding.VariantID != attempt.VariantID {
		return nil, util.ErrBindingNotFound
	}

	submitted := ""
	if text != nil {
		submitted = *text
	}
	correct := scoring.IsCorrect(submitted, binding.ReferenceAnswer, binding.SlotNumber)

	answer := &model.AttemptAnswer{
		AttemptID:     attempt.ID,
		VariantTaskID: binding.ID,
		AnswerText:    text,
		IsCorrect:     &correct,
	}
	answer.UpdatedAt = s.now().UTC()
	if err := s.Attempts.UpsertAnswer(ctx, answer); err != nil {
		return nil, fmt.Errorf("save answer: %w", err)
	}

	monitoring.ObserveAnswerGraded(correct)
	logger.Log.Debug("answer graded",
		zap.Uint("attemptID", attempt.ID),
		zap.Uint("variantTaskID", binding.ID),
		zap.Int("slot", binding.SlotNumber),
		zap.Bool("correct", correct),
	)
	return answer, nil
}

// Finish 结束尝试。只有第一次调用生效，之后返回 ErrAttemptFinished。
func (s *AttemptService) Finish(ctx context.Context, userID, attemptID uint) (*model.Attempt, error) {
	attempt, err := s.findAttempt(ctx, Viewer{UserID: userID}, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.IsFinished() {
		return nil, util.ErrAttemptFinished
	}

	now := s.now().UTC()
	ok, err := s.Attempts.MarkFinished(ctx, attempt.ID, now)
	if err != nil {
		return nil, fmt.Errorf("finish attempt %d: %w", attempt.ID, err)
	}
	if !ok {
		return nil, util.ErrAttemptFinished
	}
	attempt.FinishedAt = &now

	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, attempt.UserID); err != nil {
			logger.Log.Warn("invalidate summary cache failed", zap.Uint("userID", attempt.UserID), zap.Error(err))
		}
	}

	monitoring.AttemptsFinished.Inc()
	logger.Log.Info("attempt finished",
		zap.Uint("attemptID", attempt.ID),
		zap.Uint("userID", attempt.UserID),
		zap.Duration("elapsed", now.Sub(attempt.StartedAt)),
	)
	return attempt, nil
}

// AttemptTask 是作答页中的一道题，不含标准答案。
type AttemptTask struct {
	VariantTaskID uint    `json:"variantTaskId"`
	TaskID        uint    `json:"taskId"`
	Position      int     `json:"position"`
	SlotNumber    int     `json:"slotNumber"`
	Statement     string  `json:"statement"`
	CurrentAnswer *string `json:"currentAnswer"`
}

// AttemptProgress 是已作答题数与总题数。
type AttemptProgress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// AttemptData 是作答页所需的全部数据。
type AttemptData struct {
	Attempt *model.Attempt  `json:"attempt"`
	Variant *model.Variant  `json:"variant"`
	Tasks   []AttemptTask   `json:"tasks"`
	Stats   AttemptProgress `json:"stats"`
}

// AttemptData 返回作答页面所需的数据：按顺序排列的题目与当前答案，不包含标准答案。
func (s *AttemptService) AttemptData(ctx context.Context, viewer Viewer, attemptID uint) (*AttemptData, error) {
	attempt, err := s.findAttempt(ctx, viewer, attemptID)
	if err != nil {
		return nil, err
	}

	variant, err := s.Variants.FindByID(ctx, attempt.VariantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVariantNotFound
		}
		return nil, fmt.Errorf("find variant %d: %w", attempt.VariantID, err)
	}

	bindings, err := s.Variants.ListBindings(ctx, attempt.VariantID)
	if err != nil {
		return nil, fmt.Errorf("list variant tasks: %w", err)
	}
	rows, err := s.Attempts.AnswerRows(ctx, []uint{attempt.ID})
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	answers := make(map[uint]repository.AnswerRow, len(rows))
	for _, row := range rows {
		answers[row.VariantTaskID] = row
	}

	data := &AttemptData{
		Attempt: attempt,
		Variant: variant,
		Tasks:   make([]AttemptTask, 0, len(bindings)),
		Stats:   AttemptProgress{Total: len(bindings)},
	}
	for _, b := range bindings {
		task := AttemptTask{
			VariantTaskID: b.ID,
			TaskID:        b.TaskID,
			Position:      b.Position,
			SlotNumber:    b.SlotNumber,
			Statement:     b.Statement,
		}
		if row, ok := answers[b.ID]; ok {
			task.CurrentAnswer = row.AnswerText
			if row.AnswerText != nil && *row.AnswerText != "" {
				data.Stats.Answered++
			}
		}
		data.Tasks = append(data.Tasks, task)
	}
	return data, nil
}
