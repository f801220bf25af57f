package repository

import (
	"context"
	"kege_trainer_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

// BindingRow 是变体绑定与其题目的预连接投影。
type BindingRow struct {
	ID              uint   `json:"variantTaskId"`
	VariantID       uint   `json:"variantId"`
	TaskID          uint   `json:"taskId"`
	Position        int    `json:"position"`
	SlotNumber      int    `json:"slotNumber"`
	Statement       string `json:"statement"`
	ReferenceAnswer string `json:"-"`
}

type VariantRepository struct {
	DB *gorm.DB
}

func NewVariantRepository(db *gorm.DB) *VariantRepository {
	return &VariantRepository{DB: db}
}

func (r *VariantRepository) FindByID(ctx context.Context, id uint) (*model.Variant, error) {
	var v model.Variant
	if err := r.DB.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VariantRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Variant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var vs []model.Variant
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&vs).Error
	return vs, err
}

// joinLiveTasks 只保留未删除的绑定及其未删除的题目，查询中 variant_tasks 的别名须为 vt。
func joinLiveTasks(q *gorm.DB) *gorm.DB {
	return q.
		Joins("JOIN tasks t ON t.id = vt.task_id AND t.deleted_at IS NULL").
		Where("vt.deleted_at IS NULL")
}

func (r *VariantRepository) bindingQuery(ctx context.Context) *gorm.DB {
	return joinLiveTasks(r.DB.WithContext(ctx).
		Table("variant_tasks vt").
		Select("vt.id, vt.variant_id, vt.task_id, vt.position, t.slot_number, t.statement, t.reference_answer"))
}

func (r *VariantRepository) FindBinding(ctx context.Context, id uint) (*BindingRow, error) {
	var rows []BindingRow
	if err := r.bindingQuery(ctx).Where("vt.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *VariantRepository) ListBindings(ctx context.Context, variantID uint) ([]BindingRow, error) {
	var rows []BindingRow
	err := r.bindingQuery(ctx).
		Where("vt.variant_id = ?", variantID).
		Order("vt.position asc, vt.id asc").
		Scan(&rows).Error
	return rows, err
}

// SlotNumbers 返回每个变体所绑定题目的题号（可重复）。
func (r *VariantRepository) SlotNumbers(ctx context.Context, variantIDs []uint) (map[uint][]int, error) {
	out := make(map[uint][]int, len(variantIDs))
	if len(variantIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		VariantID  uint
		SlotNumber int
	}
	err := joinLiveTasks(r.DB.WithContext(ctx).
		Table("variant_tasks vt").
		Select("vt.variant_id, t.slot_number")).
		Where("vt.variant_id IN ?", variantIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.VariantID] = append(out[row.VariantID], row.SlotNumber)
	}
	return out, nil
}

// CreateWithTasks 在一个事务中创建变体及其绑定，绑定顺序即 tasks 的顺序。
func (r *VariantRepository) CreateWithTasks(ctx context.Context, variant *model.Variant, tasks []model.Task) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(variant).Error; err != nil {
			return err
		}
		for i := range tasks {
			if tasks[i].ID == 0 {
				if err := tx.Create(&tasks[i]).Error; err != nil {
					return err
				}
			}
			binding := model.VariantTask{
				VariantID: variant.ID,
				TaskID:    tasks[i].ID,
				Position:  i + 1,
			}
			if err := tx.Create(&binding).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *VariantRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Variant{}).Count(&count).Error
	return count, err
}

func (r *VariantRepository) CountTasks(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Task{}).Count(&count).Error
	return count, err
}

func (r *VariantRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Variant{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

func (r *VariantRepository) CountTasksSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Task{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// ListRecent 按创建时间倒序返回最近的变体。
func (r *VariantRepository) ListRecent(ctx context.Context, limit int) ([]model.Variant, error) {
	var vs []model.Variant
	err := r.DB.WithContext(ctx).Order("created_at desc, id desc").Limit(limit).Find(&vs).Error
	return vs, err
}

func (r *VariantRepository) ListRecentTasks(ctx context.Context, limit int) ([]model.Task, error) {
	var tasks []model.Task
	err := r.DB.WithContext(ctx).Order("created_at desc, id desc").Limit(limit).Find(&tasks).Error
	return tasks, err
}
