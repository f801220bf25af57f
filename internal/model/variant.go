package model

// swagger:model Variant
type Variant struct {
	BaseModel
	Source   string `gorm:"size:255" json:"source"`
	Duration int    `gorm:"default:14100" json:"duration"` // 秒
	AuthorID uint   `gorm:"index;type:bigint unsigned" json:"authorId"`
}

func (Variant) TableName() string {
	return "variants"
}

// VariantTask 把题目绑定到变体的某个位置，答案以它的 ID 为外键。
type VariantTask struct {
	BaseModel
	VariantID uint `gorm:"uniqueIndex:uq_variant_task;type:bigint unsigned;not null" json:"variantId"`
	TaskID    uint `gorm:"uniqueIndex:uq_variant_task;type:bigint unsigned;not null" json:"taskId"`
	Position  int  `json:"position"`
}

func (VariantTask) TableName() string {
	return "variant_tasks"
}
