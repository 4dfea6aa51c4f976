package entity

import (
	"strconv"
	"time"
)

// Варианты ответа
const (
	OptionA = "A"
	OptionB = "B"
	OptionC = "C"
	OptionD = "D"
)

// Question представляет вопрос банка с четырьмя вариантами ответа
type Question struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Classification
	Text          string    `gorm:"type:text;not null" json:"text"`
	OptionA       string    `gorm:"type:text;not null" json:"option_a"`
	OptionB       string    `gorm:"type:text;not null" json:"option_b"`
	OptionC       string    `gorm:"type:text;not null" json:"option_c"`
	OptionD       string    `gorm:"type:text;not null" json:"option_d"`
	CorrectOption string    `gorm:"size:1;not null" json:"-"` // Скрыто от клиента
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// Key возвращает идентификатор вопроса в том виде, в каком он приходит в карте ответов
func (q *Question) Key() string {
	return strconv.FormatUint(uint64(q.ID), 10)
}

// IsCorrect проверяет ответ. Сравнение точное и чувствительно к регистру.
func (q *Question) IsCorrect(answer string) bool {
	return answer == q.CorrectOption
}

// Options возвращает варианты ответа в порядке A-D
func (q *Question) Options() map[string]string {
	return map[string]string{
		OptionA: q.OptionA,
		OptionB: q.OptionB,
		OptionC: q.OptionC,
		OptionD: q.OptionD,
	}
}

// IndexByKey строит карту questionID -> вопрос для проверки ответов
func IndexByKey(questions []Question) map[string]*Question {
	index := make(map[string]*Question, len(questions))
	for i := range questions {
		index[questions[i].Key()] = &questions[i]
	}
	return index
}
