package middleware

import (
	"errors"
	"net/http"
	"strings"

	"bankcards/services"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// TokenParser проверяет JWT и возвращает principal из claims
type TokenParser interface {
	ParseToken(token string) (services.Principal, error)
}

// Auth проверяет JWT токен и кладет principal в контекст запроса.
// Роль берется из справочника пользователей, а не из токена, поэтому
// удаленный пользователь теряет доступ сразу.
func Auth(tokens TokenParser, users services.UserDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Получаем токен из заголовка
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claimed, err := tokens.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		principal, err := users.ResolveUser(c.Request.Context(), claimed.ID)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User no longer exists"})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to resolve user"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// AdminOnly пропускает только администраторов
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if !principal.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrator role required"})
			return
		}
		c.Next()
	}
}

// GetPrincipal получает principal, установленный Auth
func GetPrincipal(c *gin.Context) (services.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return services.Principal{}, false
	}
	principal, ok := value.(services.Principal)
	return principal, ok
}

// SetPrincipal кладет principal в контекст; используется в тестах обработчиков
func SetPrincipal(c *gin.Context, principal services.Principal) {
	c.Set(principalKey, principal)
}
