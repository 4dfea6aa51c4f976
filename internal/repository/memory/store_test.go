package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

func newCode(value string) *entity.TestCode {
	return &entity.TestCode{
		Code:             value,
		Classification:   entity.Classification{Class: "JSS2", Subject: "English", Session: "2024/2025", Term: "First", TestType: entity.TestTypeTest},
		NumQuestions:     2,
		ScorePerQuestion: 1,
		Duration:         10,
		CreatedBy:        1,
	}
}

func TestTestCodeRepo_UniqueAndLookup(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.TestCodes()

	code := newCode("CAFEBABE")
	require.NoError(t, repo.Create(ctx, code))
	assert.NotZero(t, code.ID)
	assert.False(t, code.CreatedAt.IsZero())

	assert.ErrorIs(t, repo.Create(ctx, newCode("CAFEBABE")), repository.ErrDuplicateKey)

	found, err := repo.GetByCode(ctx, "CAFEBABE")
	require.NoError(t, err)
	assert.Equal(t, code.ID, found.ID)

	_, err = repo.GetByCode(ctx, "DEADBEEF")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.SetActive(ctx, 999, true, time.Now()), apperrors.ErrNotFound)
}

func TestTxManager_RollbackRestoresState(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.TxManager().WithinTx(ctx, func(tx repository.Tx) error {
		require.NoError(t, tx.TestCodes().Create(ctx, newCode("AAAAAAAA")))
		return boom
	})
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)

	exists, err := s.TestCodes().CodeExists(ctx, "AAAAAAAA")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTxManager_DomainErrorPassesThrough(t *testing.T) {
	s := NewStore()
	err := s.TxManager().WithinTx(context.Background(), func(tx repository.Tx) error {
		return apperrors.ErrAlreadyActive
	})
	assert.Equal(t, apperrors.ErrAlreadyActive, err)
}

func TestTxManager_SavepointKeepsOuterWork(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.TxManager().WithinTx(ctx, func(tx repository.Tx) error {
		require.NoError(t, tx.TestCodes().Create(ctx, newCode("OUTER000")))
		spErr := tx.Savepoint(ctx, func(sp repository.Tx) error {
			require.NoError(t, sp.TestCodes().Create(ctx, newCode("INNER000")))
			return sp.TestCodes().Create(ctx, newCode("OUTER000"))
		})
		assert.ErrorIs(t, spErr, repository.ErrDuplicateKey)
		return nil
	})
	require.NoError(t, err)

	_, total, err := s.TestCodes().List(ctx, repository.TestCodeFilters{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestTxManager_CancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.TxManager().WithinTx(ctx, func(tx repository.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.False(t, called)
}

func TestResultRepo_UniquePairAndCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	code := newCode("RESULTS0")
	require.NoError(t, s.TestCodes().Create(ctx, code))

	answers := []byte(`{"1":"B"}`)
	result := &entity.TestResult{StudentID: 5, TestCodeID: code.ID, Score: 1, TotalScore: 2, AnswersJSON: answers}
	require.NoError(t, s.Results().Create(ctx, result))
	answers[7] = 'C' // хранилище держит свою копию

	dup := &entity.TestResult{StudentID: 5, TestCodeID: code.ID}
	assert.ErrorIs(t, s.Results().Create(ctx, dup), repository.ErrDuplicateKey)

	stored, err := s.Results().GetByStudentAndCode(ctx, 5, code.ID)
	require.NoError(t, err)
	decoded, err := stored.Answers()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1": "B"}, decoded)
}

func TestStore_FaultInjection(t *testing.T) {
	s := NewStore()
	s.SetFault(func(op string) error {
		if op == "test_codes.get" {
			return errors.New("i/o timeout")
		}
		return nil
	})

	_, err := s.TestCodes().GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	_, err = s.Results().CountByTestCode(context.Background(), 1)
	assert.NoError(t, err)
}

func TestCacheRepo_TTLAndHashes(t *testing.T) {
	cache := NewCacheRepo()
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, cache.SetJSON(ctx, "session", map[string]int{"n": 1}, time.Minute))
	var got map[string]int
	require.NoError(t, cache.GetJSON(ctx, "session", &got))
	assert.Equal(t, 1, got["n"])

	require.NoError(t, cache.HSet(ctx, "answers", "10", "A", time.Minute))
	require.NoError(t, cache.HSet(ctx, "answers", "11", "C", time.Minute))
	hash, err := cache.HGetAll(ctx, "answers")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"10": "A", "11": "C"}, hash)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, cache.GetJSON(ctx, "session", &got), apperrors.ErrNotFound)
	hash, err = cache.HGetAll(ctx, "answers")
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestCacheRepo_IncrementWindow(t *testing.T) {
	cache := NewCacheRepo()
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return now })
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := cache.Increment(ctx, "rl", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	now = now.Add(time.Minute)
	got, err := cache.Increment(ctx, "rl", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "counter resets after the window")
}
