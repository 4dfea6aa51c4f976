package entity

import (
	"encoding/json"
	"math"
	"time"

	"gorm.io/datatypes"
)

// TestResult представляет итоговый результат студента по тестовому коду.
// Одна запись на пару (student_id, test_code_id), после создания не изменяется.
type TestResult struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	StudentID         uint           `gorm:"not null;uniqueIndex:idx_student_test_code" json:"student_id"`
	TestCodeID        uint           `gorm:"not null;index;uniqueIndex:idx_student_test_code" json:"test_code_id"`
	Score             int            `gorm:"not null;default:0" json:"score"`
	TotalScore        int            `gorm:"not null;default:0" json:"total_score"`
	TimeTaken         int            `gorm:"not null;default:0" json:"time_taken"` // секунды
	QuestionsAnswered int            `gorm:"not null;default:0" json:"questions_answered"`
	CorrectAnswers    int            `gorm:"not null;default:0" json:"correct_answers"`
	WrongAnswers      int            `gorm:"not null;default:0" json:"wrong_answers"`
	AnswersJSON       datatypes.JSON `gorm:"column:answers_json;type:jsonb;not null" json:"answers_json"`
	CompletedAt       time.Time      `gorm:"not null" json:"completed_at"`
}

// TableName определяет имя таблицы для GORM
func (TestResult) TableName() string {
	return "test_results"
}

// Percentage возвращает процент набранных баллов, округлённый до одного знака
func (r *TestResult) Percentage() float64 {
	return Percentage(r.Score, r.TotalScore)
}

// Answers декодирует сохранённую карту ответов
func (r *TestResult) Answers() (map[string]string, error) {
	answers := map[string]string{}
	if len(r.AnswersJSON) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(r.AnswersJSON, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// Percentage считает round(score/total*100, 1); для total <= 0 возвращает 0
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*1000) / 10
}
