package model

// Task 是题库中的一道题。SlotNumber 为其在试卷中的题号（1-27），
// 19-21 三题合并存储为题号 19。
// swagger:model Task
type Task struct {
	BaseModel
	SlotNumber      int    `gorm:"index;not null" json:"slotNumber"`
	Statement       string `gorm:"type:text" json:"statement"`
	ReferenceAnswer string `gorm:"type:text;not null" json:"-"`
	Source          string `gorm:"size:255" json:"source"`
	AuthorID        uint   `gorm:"index;type:bigint unsigned" json:"authorId"`
}

func (Task) TableName() string {
	return "tasks"
}
