package entity

import (
	"time"
)

// Типы тестов
const (
	TestTypeTest = "Test"
	TestTypeExam = "Exam"
)

// Статусы кода в ответах API
const (
	CodeStatusActive   = "active"
	CodeStatusInactive = "inactive"
)

// Classification определяет набор вопросов банка, к которому привязан код
type Classification struct {
	Class    string `gorm:"size:50;not null" json:"class"`
	Subject  string `gorm:"size:100;not null" json:"subject"`
	Session  string `gorm:"size:20;not null" json:"session"`
	Term     string `gorm:"size:20;not null" json:"term"`
	TestType string `gorm:"size:20;not null" json:"test_type"`
}

// TestCode представляет код доступа к тесту
type TestCode struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"size:16;not null;uniqueIndex" json:"code"`
	Classification
	NumQuestions     int        `gorm:"not null" json:"num_questions"`
	ScorePerQuestion int        `gorm:"not null" json:"score_per_question"`
	Duration         int        `gorm:"not null" json:"duration"` // минуты
	Active           bool       `gorm:"not null;default:false;index" json:"active"`
	Disabled         bool       `gorm:"not null;default:false" json:"disabled"`
	ActivatedAt      *time.Time `json:"activated_at,omitempty"`
	DeactivatedAt    *time.Time `json:"deactivated_at,omitempty"`
	CreatedBy        uint       `gorm:"not null" json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (TestCode) TableName() string {
	return "test_codes"
}

// TotalScore возвращает максимальный балл по коду
func (c *TestCode) TotalScore() int {
	return c.NumQuestions * c.ScorePerQuestion
}

// IsUsable проверяет, могут ли студенты проходить тест по этому коду
func (c *TestCode) IsUsable() bool {
	return c.Active && !c.Disabled
}

// Status возвращает строковый статус для ответов API
func (c *TestCode) Status() string {
	if c.Active {
		return CodeStatusActive
	}
	return CodeStatusInactive
}

// IsValidTestType проверяет тип теста
func IsValidTestType(t string) bool {
	return t == TestTypeTest || t == TestTypeExam
}
