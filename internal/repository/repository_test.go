package repository

import (
	"context"
	"errors"
	"fmt"
	"kege_trainer_backend/internal/model"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Task{},
		&model.Variant{},
		&model.VariantTask{},
		&model.Attempt{},
		&model.AttemptAnswer{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, slots ...int) (*model.Variant, []BindingRow) {
	t.Helper()
	ctx := context.Background()
	tasks := make([]model.Task, 0, len(slots))
	for _, n := range slots {
		tasks = append(tasks, model.Task{SlotNumber: n, ReferenceAnswer: fmt.Sprintf("%d", n*7)})
	}
	repo := NewVariantRepository(db)
	variant := &model.Variant{Source: "test"}
	require.NoError(t, repo.CreateWithTasks(ctx, variant, tasks))

	bindings, err := repo.ListBindings(ctx, variant.ID)
	require.NoError(t, err)
	require.Len(t, bindings, len(slots))
	return variant, bindings
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func TestVariantRepository_Bindings(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewVariantRepository(db)

	variant, bindings := seedVariant(t, db, 3, 1, 19)
	stored, err := repo.FindByID(ctx, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 14100, stored.Duration)
	for i, b := range bindings {
		assert.Equal(t, i+1, b.Position)
		assert.Equal(t, variant.ID, b.VariantID)
	}
	assert.Equal(t, []int{3, 1, 19}, []int{bindings[0].SlotNumber, bindings[1].SlotNumber, bindings[2].SlotNumber})
	assert.Equal(t, "133", bindings[2].ReferenceAnswer)

	found, err := repo.FindBinding(ctx, bindings[1].ID)
	require.NoError(t, err)
	assert.Equal(t, bindings[1], *found)

	_, err = repo.FindBinding(ctx, 9999)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	other, _ := seedVariant(t, db, 26, 27)
	slots, err := repo.SlotNumbers(ctx, []uint{variant.ID, other.ID, 12345})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 3, 19}, slots[variant.ID])
	assert.ElementsMatch(t, []int{26, 27}, slots[other.ID])
	assert.Empty(t, slots[12345])

	variants, err := repo.FindByIDs(ctx, []uint{variant.ID, other.ID})
	require.NoError(t, err)
	assert.Len(t, variants, 2)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	taskCount, err := repo.CountTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), taskCount)
}

func TestAttemptRepository_UniquePerUserAndVariant(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAttemptRepository(db)
	variant, _ := seedVariant(t, db, 1)

	require.NoError(t, repo.Create(ctx, &model.Attempt{UserID: 1, VariantID: variant.ID, StartedAt: time.Now().UTC()}))
	err := repo.Create(ctx, &model.Attempt{UserID: 1, VariantID: variant.ID, StartedAt: time.Now().UTC()})
	assert.Error(t, err)

	found, err := repo.FindByUserAndVariant(ctx, 1, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), found.UserID)

	_, err = repo.FindByUserAndVariant(ctx, 2, variant.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestAttemptRepository_MarkFinishedOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAttemptRepository(db)
	variant, _ := seedVariant(t, db, 1)

	attempt := &model.Attempt{UserID: 1, VariantID: variant.ID, StartedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, attempt))

	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ok, err := repo.MarkFinished(ctx, attempt.ID, first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkFinished(ctx, attempt.ID, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FinishedAt)
	assert.True(t, first.Equal(*stored.FinishedAt))

	ok, err = repo.MarkFinished(ctx, 9999, first)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAttemptRepository_UpsertAnswerLastWriteWins(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAttemptRepository(db)
	_, bindings := seedVariant(t, db, 1, 19)
	attempt := &model.Attempt{UserID: 1, VariantID: bindings[0].VariantID, StartedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, attempt))

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	first := &model.AttemptAnswer{AttemptID: attempt.ID, VariantTaskID: bindings[0].ID, AnswerText: strPtr("7"), IsCorrect: boolPtr(true)}
	first.UpdatedAt = t0
	require.NoError(t, repo.UpsertAnswer(ctx, first))

	second := &model.AttemptAnswer{AttemptID: attempt.ID, VariantTaskID: bindings[0].ID, AnswerText: strPtr("8"), IsCorrect: boolPtr(false)}
	second.UpdatedAt = t0.Add(time.Minute)
	require.NoError(t, repo.UpsertAnswer(ctx, second))

	stored, err := repo.FindAnswer(ctx, attempt.ID, bindings[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "8", *stored.AnswerText)
	assert.False(t, *stored.IsCorrect)
	assert.True(t, t0.Add(time.Minute).Equal(stored.UpdatedAt))

	var count int64
	require.NoError(t, db.Model(&model.AttemptAnswer{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// 空答案也要保存
	blank := &model.AttemptAnswer{AttemptID: attempt.ID, VariantTaskID: bindings[1].ID, IsCorrect: boolPtr(false)}
	blank.UpdatedAt = t0
	require.NoError(t, repo.UpsertAnswer(ctx, blank))

	rows, err := repo.AnswerRows(ctx, []uint{attempt.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].SlotNumber)
	assert.Equal(t, "7", rows[0].ReferenceAnswer)
	assert.Equal(t, "8", *rows[0].AnswerText)
	assert.Equal(t, 19, rows[1].SlotNumber)
	assert.Nil(t, rows[1].AnswerText)
	require.NotNil(t, rows[1].IsCorrect)
	assert.False(t, *rows[1].IsCorrect)
}

func TestAttemptRepository_ListFinished(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAttemptRepository(db)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var ids []uint
	for i := 0; i < 3; i++ {
		variant, _ := seedVariant(t, db, 1)
		a := &model.Attempt{UserID: 1, VariantID: variant.ID, StartedAt: base}
		require.NoError(t, repo.Create(ctx, a))
		_, err := repo.MarkFinished(ctx, a.ID, base.Add(time.Duration(i+1)*24*time.Hour))
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}
	// 未结束
	variant, _ := seedVariant(t, db, 1)
	require.NoError(t, repo.Create(ctx, &model.Attempt{UserID: 1, VariantID: variant.ID, StartedAt: base}))
	// 其他用户
	other := &model.Attempt{UserID: 2, VariantID: variant.ID, StartedAt: base}
	require.NoError(t, repo.Create(ctx, other))
	_, err := repo.MarkFinished(ctx, other.ID, base)
	require.NoError(t, err)

	oldest, err := repo.ListFinished(ctx, AttemptFilter{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, ids, attemptIDs(oldest))

	newest, err := repo.ListFinished(ctx, AttemptFilter{UserID: 1, NewestFirst: true, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint{ids[2], ids[1]}, attemptIDs(newest))

	recent, err := repo.ListFinished(ctx, AttemptFilter{UserID: 1, Since: base.Add(36 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, []uint{ids[1], ids[2]}, attemptIDs(recent))

	all, err := repo.ListFinished(ctx, AttemptFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func attemptIDs(attempts []model.Attempt) []uint {
	out := make([]uint, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, a.ID)
	}
	return out
}

func TestUserRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	alice := &model.User{Username: "alice", Role: model.Student}
	bob := &model.User{Username: "bob", Role: model.Admin}
	require.NoError(t, repo.Create(ctx, alice))
	require.NoError(t, repo.Create(ctx, bob))
	assert.Error(t, repo.Create(ctx, &model.User{Username: "alice"}))

	users, err := repo.FindByIDs(ctx, []uint{bob.ID})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)

	none, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepositories_SoftDeletedTaskLeavesEveryView(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	variants := NewVariantRepository(db)
	attempts := NewAttemptRepository(db)

	variant, bindings := seedVariant(t, db, 1, 2, 3)
	attempt := &model.Attempt{UserID: 1, VariantID: variant.ID, StartedAt: time.Now().UTC()}
	require.NoError(t, attempts.Create(ctx, attempt))
	for _, b := range bindings {
		answer := &model.AttemptAnswer{AttemptID: attempt.ID, VariantTaskID: b.ID, AnswerText: strPtr(b.ReferenceAnswer), IsCorrect: boolPtr(true)}
		require.NoError(t, attempts.UpsertAnswer(ctx, answer))
	}

	require.NoError(t, db.Delete(&model.Task{}, bindings[0].TaskID).Error)

	slots, err := variants.SlotNumbers(ctx, []uint{variant.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{2, 3}, slots[variant.ID])

	rows, err := attempts.AnswerRows(ctx, []uint{attempt.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []int{2, 3}, []int{rows[0].SlotNumber, rows[1].SlotNumber})

	live, err := variants.ListBindings(ctx, variant.ID)
	require.NoError(t, err)
	assert.Len(t, live, 2)
	_, err = variants.FindBinding(ctx, bindings[0].ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	// 删除绑定同样生效
	require.NoError(t, db.Delete(&model.VariantTask{}, bindings[1].ID).Error)
	slots, err = variants.SlotNumbers(ctx, []uint{variant.ID})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, slots[variant.ID])
	rows, err = attempts.AnswerRows(ctx, []uint{attempt.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].SlotNumber)
}

func TestRepositories_RecentAndCountSince(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	variants := NewVariantRepository(db)
	attempts := NewAttemptRepository(db)

	now := time.Now().UTC()
	old := now.AddDate(0, 0, -30)
	since := now.AddDate(0, 0, -7)

	oldUser := &model.User{Username: "old", Role: model.Student}
	oldUser.CreatedAt = old
	require.NoError(t, users.Create(ctx, oldUser))
	require.NoError(t, users.Create(ctx, &model.User{Username: "new", Role: model.Student}))

	oldVariant := &model.Variant{Source: "old"}
	oldVariant.CreatedAt = old
	oldTask := model.Task{SlotNumber: 1, ReferenceAnswer: "7"}
	oldTask.CreatedAt = old
	require.NoError(t, variants.CreateWithTasks(ctx, oldVariant, []model.Task{oldTask}))
	newVariant, _ := seedVariant(t, db, 2, 3)

	require.NoError(t, attempts.Create(ctx, &model.Attempt{UserID: 1, VariantID: oldVariant.ID, StartedAt: old}))
	require.NoError(t, attempts.Create(ctx, &model.Attempt{UserID: 1, VariantID: newVariant.ID, StartedAt: now}))

	n, err := users.CountSince(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = variants.CountSince(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = variants.CountTasksSince(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = attempts.CountStartedSince(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	recentUsers, err := users.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recentUsers, 1)
	assert.Equal(t, "new", recentUsers[0].Username)

	recentVariants, err := variants.ListRecent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recentVariants, 2)
	assert.Equal(t, newVariant.ID, recentVariants[0].ID)

	recentTasks, err := variants.ListRecentTasks(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recentTasks, 2)
	assert.ElementsMatch(t, []int{2, 3}, []int{recentTasks[0].SlotNumber, recentTasks[1].SlotNumber})
}
