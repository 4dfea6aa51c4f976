package helper

import (
	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// QuestionOption представляет вариант ответа для фронтенда
type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ConvertOptionsToObjects возвращает варианты вопроса в порядке A-D.
// ID совпадает с буквой, которую студент отправляет в ответе.
func ConvertOptionsToObjects(q *entity.Question) []QuestionOption {
	letters := []string{entity.OptionA, entity.OptionB, entity.OptionC, entity.OptionD}
	options := q.Options()
	converted := make([]QuestionOption, len(letters))
	for i, letter := range letters {
		text := options[letter]
		if text == "" {
			text = "(empty option)"
		}
		converted[i] = QuestionOption{ID: letter, Text: text}
	}
	return converted
}
