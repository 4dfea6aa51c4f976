package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/cbt-api/pkg/auth"
)

// Ключи контекста Gin
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// TokenParser — то, что нужно middleware от сервиса JWT
type TokenParser interface {
	ParseToken(tokenString string) (*auth.JWTCustomClaims, error)
}

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	jwtService TokenParser
}

// NewAuthMiddleware создает новый middleware
func NewAuthMiddleware(jwtService TokenParser) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

func abortJSON(c *gin.Context, status int, message, errorType string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message, "error_type": errorType})
}

// RequireAuth проверяет Bearer-токен и кладет user_id и role в контекст
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortJSON(c, http.StatusUnauthorized, "Authorization header is required", "token_missing")
			return
		}

		// Проверяем формат заголовка Bearer {token}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortJSON(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}", "token_format")
			return
		}

		claims, err := m.jwtService.ParseToken(parts[1])
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "Invalid or expired token", "token_invalid")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole пропускает только пользователей с одной из ролей. Применяется после RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			abortJSON(c, http.StatusUnauthorized, "Unauthorized", "token_missing")
			return
		}
		if _, ok := allowed[role]; !ok {
			log.Printf("[AuthMiddleware] Доступ запрещен: user_id=%d role=%s path=%s", c.GetUint(ContextUserID), role, c.FullPath())
			abortJSON(c, http.StatusForbidden, "You do not have permission to perform this action", "forbidden")
			return
		}
		c.Next()
	}
}

// AdminOnly — сокращение для RequireRole(admin)
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return m.RequireRole(auth.RoleAdmin)
}

// UserID возвращает ID пользователя, установленный RequireAuth
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id > 0
}
