package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportResults_CSV(t *testing.T) {
	s := newTestServer(t)
	code := s.seedCode(t, "ABCDEF01", true)
	s.seedResult(t, 10, code.ID, 4)
	s.seedResult(t, 11, code.ID, 10)

	w := s.asAdmin(t, http.MethodGet, fmt.Sprintf("/api/admin/test-codes/%d/results/export", code.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "test_ABCDEF01_results_")

	body := w.Body.Bytes()
	require.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}), "CSV must start with UTF-8 BOM")

	records, err := csv.NewReader(bytes.NewReader(body[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "11", records[1][1])
	assert.Equal(t, "100.0", records[1][7])
	assert.Equal(t, "10", records[2][1])
	assert.Equal(t, "40.0", records[2][7])
}

func TestExportResults_XLSX(t *testing.T) {
	s := newTestServer(t)
	code := s.seedCode(t, "ABCDEF01", true)
	s.seedResult(t, 10, code.ID, 4)

	w := s.asAdmin(t, http.MethodGet, fmt.Sprintf("/api/admin/test-codes/%d/results/export?format=xlsx", code.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Student ID", rows[0][1])
	assert.Equal(t, "10", rows[1][1])
	assert.Equal(t, "ABCDEF01", rows[1][2])
}

func TestExportResults_BadFormatAndMissingCode(t *testing.T) {
	s := newTestServer(t)
	code := s.seedCode(t, "ABCDEF01", true)

	w := s.asAdmin(t, http.MethodGet, fmt.Sprintf("/api/admin/test-codes/%d/results/export?format=pdf", code.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.asAdmin(t, http.MethodGet, "/api/admin/test-codes/999/results/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSanitizeForExcel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Mathematics", "Mathematics"},
		{"=SUM(A1:A2)", "'=SUM(A1:A2)"},
		{"+1", "'+1"},
		{"-1", "'-1"},
		{"@cmd", "'@cmd"},
		{"\tx", "'\tx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeForExcel(tt.in), "input %q", tt.in)
	}
}
