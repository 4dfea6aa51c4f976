package handler

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/cbt-api/internal/domain/entity"
)

var exportHeaders = []string{
	"Rank", "Student ID", "Test Code", "Class", "Subject", "Score", "Total Score",
	"Percentage", "Correct", "Wrong", "Answered", "Time Taken (s)", "Completed At",
}

// exportRow формирует строку выгрузки. Строковые поля экранируются от formula injection.
func exportRow(rank int, code *entity.TestCode, r *entity.TestResult) []interface{} {
	return []interface{}{
		rank,
		r.StudentID,
		sanitizeForExcel(code.Code),
		sanitizeForExcel(code.Class),
		sanitizeForExcel(code.Subject),
		r.Score,
		r.TotalScore,
		r.Percentage(),
		r.CorrectAnswers,
		r.WrongAnswers,
		r.QuestionsAnswered,
		r.TimeTaken,
		r.CompletedAt.UTC().Format(time.RFC3339),
	}
}

// exportCSV экспортирует результаты в CSV с правильным экранированием спецсимволов
func exportCSV(c *gin.Context, code *entity.TestCode, results []entity.TestResult, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for i := range results {
		row := exportRow(i+1, code, &results[i])
		record := make([]string, len(row))
		for j, v := range row {
			switch val := v.(type) {
			case string:
				record[j] = val
			case float64:
				record[j] = strconv.FormatFloat(val, 'f', 1, 64)
			default:
				record[j] = fmt.Sprint(val)
			}
		}
		if err := writer.Write(record); err != nil {
			log.Printf("[Export] Ошибка записи строки CSV %d: %v", i+1, err)
			return
		}
	}
}

// exportXLSX экспортирует результаты в Excel с использованием StreamWriter
func exportXLSX(c *gin.Context, code *entity.TestCode, results []entity.TestResult, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Results"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[Export] Ошибка создания StreamWriter: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to create Excel file", nil)
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[Export] Ошибка записи заголовков: %v", err)
	}

	for i := range results {
		rowNum := i + 2 // 1 - заголовки
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := sw.SetRow(cell, exportRow(i+1, code, &results[i])); err != nil {
			log.Printf("[Export] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[Export] Ошибка при Flush: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to create Excel file", nil)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[Export] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
