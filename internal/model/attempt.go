package model

import "time"

// swagger:model Attempt
type Attempt struct {
	BaseModel
	UserID     uint       `gorm:"uniqueIndex:uq_user_variant_attempt;type:bigint unsigned;not null" json:"userId"`
	VariantID  uint       `gorm:"uniqueIndex:uq_user_variant_attempt;type:bigint unsigned;not null" json:"variantId"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `gorm:"index" json:"finishedAt,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) IsFinished() bool {
	return a.FinishedAt != nil
}

// AttemptAnswer 存储一次尝试中对某个绑定的作答，IsCorrect 为空表示未评分。
type AttemptAnswer struct {
	BaseModel
	AttemptID     uint    `gorm:"uniqueIndex:uq_attempt_answer;type:bigint unsigned;not null" json:"attemptId"`
	VariantTaskID uint    `gorm:"uniqueIndex:uq_attempt_answer;type:bigint unsigned;not null" json:"variantTaskId"`
	AnswerText    *string `gorm:"type:text" json:"answerText"`
	IsCorrect     *bool   `json:"isCorrect"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
