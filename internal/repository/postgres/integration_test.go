package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
	"github.com/yourusername/cbt-api/pkg/database"
)

// Тесты требуют живого PostgreSQL:
//
//	CBT_INTEGRATION=1 CBT_TEST_DSN="host=localhost user=cbt password=cbt dbname=cbt_test sslmode=disable" go test ./internal/repository/postgres/
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("CBT_INTEGRATION") != "1" {
		t.Skip("set CBT_INTEGRATION=1 and CBT_TEST_DSN to run PostgreSQL tests")
	}
	dsn := os.Getenv("CBT_TEST_DSN")
	if dsn == "" {
		t.Skip("CBT_TEST_DSN is not set")
	}

	db, err := database.NewPostgresDB(dsn, false)
	require.NoError(t, err)
	require.NoError(t, database.MigrateDB(db, "../../../migrations"))
	require.NoError(t, db.Exec("TRUNCATE activity_logs, test_results, test_codes, questions RESTART IDENTITY CASCADE").Error)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

var itClassification = entity.Classification{
	Class:    "SS2",
	Subject:  "Physics",
	Session:  "2024/2025",
	Term:     "Second",
	TestType: entity.TestTypeExam,
}

func newCode(value string) *entity.TestCode {
	return &entity.TestCode{
		Code:             value,
		Classification:   itClassification,
		NumQuestions:     5,
		ScorePerQuestion: 2,
		Duration:         20,
		CreatedBy:        1,
	}
}

func TestTestCodeRepo_UniqueCode(t *testing.T) {
	db := openTestDB(t)
	repo := NewTestCodeRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newCode("A1B2C3D4")))
	err := repo.Create(ctx, newCode("A1B2C3D4"))
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)

	exists, err := repo.CodeExists(ctx, "A1B2C3D4")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTxManager_SavepointIsolatesConflict(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, NewTestCodeRepo(db).Create(ctx, newCode("TAKEN000")))

	txm := NewTxManager(db)
	err := txm.WithinTx(ctx, func(tx repository.Tx) error {
		spErr := tx.Savepoint(ctx, func(sp repository.Tx) error {
			return sp.TestCodes().Create(ctx, newCode("TAKEN000"))
		})
		require.ErrorIs(t, spErr, repository.ErrDuplicateKey)

		// Транзакция продолжает работать после отката к точке сохранения
		return tx.TestCodes().Create(ctx, newCode("FREE0000"))
	})
	require.NoError(t, err)

	_, total, err := NewTestCodeRepo(db).List(ctx, repository.TestCodeFilters{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestTxManager_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	txm := NewTxManager(db)

	boom := errors.New("boom")
	err := txm.WithinTx(ctx, func(tx repository.Tx) error {
		require.NoError(t, tx.TestCodes().Create(ctx, newCode("ROLLBACK")))
		return boom
	})
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)

	exists, err := NewTestCodeRepo(db).CodeExists(ctx, "ROLLBACK")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTestCodeRepo_SetActiveAndFilters(t *testing.T) {
	db := openTestDB(t)
	repo := NewTestCodeRepo(db)
	ctx := context.Background()

	a := newCode("AAAA0000")
	b := newCode("BBBB0000")
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SetActive(ctx, a.ID, true, now))
	assert.ErrorIs(t, repo.SetActive(ctx, 9999, true, now), apperrors.ErrNotFound)

	stored, err := repo.GetByIDForUpdate(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
	require.NotNil(t, stored.ActivatedAt)

	active := true
	codes, total, err := repo.List(ctx, repository.TestCodeFilters{Active: &active, Subject: "Physics"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, codes, 1)
	assert.Equal(t, "AAAA0000", codes[0].Code)
}

func TestResultRepo_UniquePairAndOrdering(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	code := newCode("RESULTS0")
	require.NoError(t, NewTestCodeRepo(db).Create(ctx, code))
	repo := NewResultRepo(db)

	mk := func(student uint, score, taken int) *entity.TestResult {
		return &entity.TestResult{
			StudentID:   student,
			TestCodeID:  code.ID,
			Score:       score,
			TotalScore:  10,
			TimeTaken:   taken,
			AnswersJSON: datatypes.JSON(`{"1":"A"}`),
			CompletedAt: time.Now(),
		}
	}
	require.NoError(t, repo.Create(ctx, mk(1, 6, 300)))
	require.NoError(t, repo.Create(ctx, mk(2, 8, 500)))
	require.NoError(t, repo.Create(ctx, mk(3, 8, 200)))
	assert.ErrorIs(t, repo.Create(ctx, mk(1, 10, 10)), repository.ErrDuplicateKey)

	exists, err := repo.Exists(ctx, 1, code.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := repo.CountByTestCode(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	page, total, err := repo.ListByTestCode(ctx, code.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, uint(3), page[0].StudentID)
	assert.Equal(t, uint(2), page[1].StudentID)

	stored, err := repo.GetByStudentAndCode(ctx, 1, code.ID)
	require.NoError(t, err)
	answers, err := stored.Answers()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1": "A"}, answers)
}

func TestQuestionRepo_ByClassification(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&entity.Question{
			Classification: itClassification,
			Text:           "Q",
			OptionA:        "a", OptionB: "b", OptionC: "c", OptionD: "d",
			CorrectOption: entity.OptionC,
		}).Error)
	}
	repo := NewQuestionRepo(db)

	count, err := repo.CountByClassification(ctx, itClassification)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	other := itClassification
	other.Term = "Third"
	count, err = repo.CountByClassification(ctx, other)
	require.NoError(t, err)
	assert.Zero(t, count)

	questions, err := repo.GetByClassification(ctx, itClassification)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	assert.Equal(t, entity.OptionC, questions[0].CorrectOption)

	byIDs, err := repo.GetByIDs(ctx, []uint{questions[0].ID, questions[2].ID})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)
}
