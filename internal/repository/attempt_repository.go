package repository

import (
	"context"
	"kege_trainer_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnswerRow 是答案与其题目信息的预连接投影。
type AnswerRow struct {
	AttemptID       uint      `json:"attemptId"`
	VariantTaskID   uint      `json:"variantTaskId"`
	SlotNumber      int       `json:"slotNumber"`
	ReferenceAnswer string    `json:"-"`
	AnswerText      *string   `json:"answerText"`
	IsCorrect       *bool     `json:"isCorrect"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// AttemptFilter 描述已完成尝试的查询条件，零值字段不参与过滤。
type AttemptFilter struct {
	UserID      uint
	Since       time.Time
	Limit       int
	NewestFirst bool
}

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(ctx context.Context, attempt *model.Attempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *AttemptRepository) FindByID(ctx context.Context, id uint) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) FindByUserAndVariant(ctx context.Context, userID, variantID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND variant_id = ?", userID, variantID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// MarkFinished 仅在尝试尚未结束时写入 finished_at，返回是否由本次调用完成。
func (r *AttemptRepository) MarkFinished(ctx context.Context, attemptID uint, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&model.Attempt{}).
		Where("id = ? AND finished_at IS NULL", attemptID).
		Update("finished_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpsertAnswer 按 (attempt_id, variant_task_id) 唯一键写入答案，后写覆盖先写。
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, answer *model.AttemptAnswer) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "variant_task_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer_text", "is_correct", "updated_at"}),
	}).Create(answer).Error
}

func (r *AttemptRepository) FindAnswer(ctx context.Context, attemptID, variantTaskID uint) (*model.AttemptAnswer, error) {
	var a model.AttemptAnswer
	err := r.DB.WithContext(ctx).
		Where("attempt_id = ? AND variant_task_id = ?", attemptID, variantTaskID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) ListFinished(ctx context.Context, f AttemptFilter) ([]model.Attempt, error) {
	q := r.DB.WithContext(ctx).Model(&model.Attempt{}).Where("finished_at IS NOT NULL")
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if !f.Since.IsZero() {
		q = q.Where("finished_at >= ?", f.Since)
	}
	if f.NewestFirst {
		q = q.Order("finished_at desc, id desc")
	} else {
		q = q.Order("finished_at asc, id asc")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var attempts []model.Attempt
	err := q.Find(&attempts).Error
	return attempts, err
}

// AnswerRows 一次性取出多个尝试的全部答案及其题号、标准答案。
func (r *AttemptRepository) AnswerRows(ctx context.Context, attemptIDs []uint) ([]AnswerRow, error) {
	if len(attemptIDs) == 0 {
		return nil, nil
	}
	var rows []AnswerRow
	err := joinLiveTasks(r.DB.WithContext(ctx).
		Table("attempt_answers aa").
		Select("aa.attempt_id, aa.variant_task_id, t.slot_number, t.reference_answer, aa.answer_text, aa.is_correct, aa.updated_at").
		Joins("JOIN variant_tasks vt ON vt.id = aa.variant_task_id")).
		Where("aa.attempt_id IN ? AND aa.deleted_at IS NULL", attemptIDs).
		Order("aa.attempt_id asc, vt.position asc").
		Scan(&rows).Error
	return rows, err
}

func (r *AttemptRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Attempt{}).Count(&count).Error
	return count, err
}

// CountStartedSince 统计 since 之后开始的尝试，包括未结束的。
func (r *AttemptRepository) CountStartedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Attempt{}).Where("started_at >= ?", since).Count(&count).Error
	return count, err
}
