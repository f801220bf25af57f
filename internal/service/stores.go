package service

import (
	"context"
	"kege_trainer_backend/internal/model"
	"kege_trainer_backend/internal/repository"
	"time"
)

// AttemptStore 是尝试与答案的存储，由 repository.AttemptRepository 实现。
type AttemptStore interface {
	Create(ctx context.Context, attempt *model.Attempt) error
	FindByID(ctx context.Context, id uint) (*model.Attempt, error)
	FindByUserAndVariant(ctx context.Context, userID, variantID uint) (*model.Attempt, error)
	MarkFinished(ctx context.Context, attemptID uint, at time.Time) (bool, error)
	UpsertAnswer(ctx context.Context, answer *model.AttemptAnswer) error
	ListFinished(ctx context.Context, f repository.AttemptFilter) ([]model.Attempt, error)
	AnswerRows(ctx context.Context, attemptIDs []uint) ([]repository.AnswerRow, error)
	Count(ctx context.Context) (int64, error)
	CountStartedSince(ctx context.Context, since time.Time) (int64, error)
}

// VariantStore 由 repository.VariantRepository 实现。
type VariantStore interface {
	FindByID(ctx context.Context, id uint) (*model.Variant, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Variant, error)
	FindBinding(ctx context.Context, id uint) (*repository.BindingRow, error)
	ListBindings(ctx context.Context, variantID uint) ([]repository.BindingRow, error)
	SlotNumbers(ctx context.Context, variantIDs []uint) (map[uint][]int, error)
	Count(ctx context.Context) (int64, error)
	CountTasks(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountTasksSince(ctx context.Context, since time.Time) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]model.Variant, error)
	ListRecentTasks(ctx context.Context, limit int) ([]model.Task, error)
}

// UserStore 由 repository.UserRepository 实现。
type UserStore interface {
	FindByIDs(ctx context.Context, ids []uint) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]model.User, error)
}

// SummaryCache 缓存用户汇总统计，由 repository.SummaryCache 实现；可为空。
type SummaryCache interface {
	Get(ctx context.Context, userID uint, dst interface{}) (bool, error)
	Set(ctx context.Context, userID uint, value interface{}) error
	Invalidate(ctx context.Context, userID uint) error
}

// Viewer 是发起读取请求的用户，只有本人或管理员可以查看尝试。
type Viewer struct {
	UserID  uint
	IsAdmin bool
}

func (v Viewer) canView(ownerID uint) bool {
	return v.IsAdmin || v.UserID == ownerID
}
