package entity

import "time"

// TestSession — текущая попытка студента. Хранится в Redis, не в БД.
type TestSession struct {
	ID          string    `json:"id"`
	StudentID   uint      `json:"student_id"`
	TestCodeID  uint      `json:"test_code_id"`
	StartTime   time.Time `json:"start_time"`
	ExpiresAt   time.Time `json:"expires_at"`
	QuestionIDs []uint    `json:"question_ids"`
}

// IsExpired проверяет, истекло ли время сессии
func (s *TestSession) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Elapsed возвращает прошедшее с начала время в целых секундах
func (s *TestSession) Elapsed(now time.Time) int {
	d := now.Sub(s.StartTime)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
