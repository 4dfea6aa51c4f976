package service

import "github.com/yourusername/cbt-api/internal/domain/entity"

// Score — итог подсчета баллов по карте ответов
type Score struct {
	Score    int
	Correct  int
	Wrong    int
	Answered int
}

// ScoreAnswers проверяет ответы по банку. Ответы на вопросы, которых нет в банке,
// не учитываются.
func ScoreAnswers(bank map[string]*entity.Question, answers map[string]string, scorePerQuestion int) Score {
	var s Score
	for questionID, answer := range answers {
		question, ok := bank[questionID]
		if !ok {
			continue
		}
		if question.IsCorrect(answer) {
			s.Correct++
			s.Score += scorePerQuestion
		} else {
			s.Wrong++
		}
	}
	s.Answered = s.Correct + s.Wrong
	return s
}

// answersToScore возвращает отправленные ответы как есть. Промежуточные ответы
// используются, только если отправка пришла совсем без ответов.
func answersToScore(cached, submitted map[string]string) map[string]string {
	if len(submitted) > 0 {
		return submitted
	}
	if len(cached) > 0 {
		return cached
	}
	return map[string]string{}
}
