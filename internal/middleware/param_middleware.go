package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

var errBadID = errors.New("must be a positive integer")

// parseID принимает только целые ID от 1 до MaxUint32
func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errBadID
	}
	return uint(id), nil
}

// ExtractUintParam проверяет числовой параметр пути и кладет его в контекст под contextKey.
// Обработчики читают значение через PathID.
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c.Param(paramName))
		if err != nil {
			abortJSON(c, http.StatusBadRequest, "Invalid "+paramName+": "+err.Error(), "validation")
			return
		}
		c.Set(contextKey, id)
		c.Next()
	}
}

// PathID возвращает ID, сохраненный ExtractUintParam
func PathID(c *gin.Context, contextKey string) (uint, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id > 0
}
