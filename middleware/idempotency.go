package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"bankcards/cache"
	"bankcards/utils"

	"github.com/gin-gonic/gin"
)

// IdempotencyHeader заголовок с ключом повторного запроса
const IdempotencyHeader = "Idempotency-Key"

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency повторяет сохраненный ответ для запроса с тем же ключом,
// чтобы повтор перевода клиентом не списал деньги дважды. Ключ
// привязан к пользователю. Ответы 5xx не сохраняются: такой запрос
// можно повторить.
func Idempotency(store cache.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > 128 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key is too long"})
			return
		}

		var owner uint
		if principal, ok := GetPrincipal(c); ok {
			owner = principal.ID
		}
		storeKey := fmt.Sprintf("idempotency:%d:%s:%s", owner, c.FullPath(), key)
		ctx := c.Request.Context()

		reserved, err := store.Reserve(ctx, storeKey)
		if err != nil {
			utils.LogError("idempotency store unavailable: %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Idempotency store unavailable"})
			return
		}
		if !reserved {
			stored, err := store.Load(ctx, storeKey)
			switch {
			case err != nil:
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Idempotency store unavailable"})
			case stored == nil || stored.Pending:
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Request with this Idempotency-Key is still in progress"})
			default:
				c.Header("Idempotent-Replayed", "true")
				c.Data(stored.Status, stored.ContentType, stored.Body)
				c.Abort()
			}
			return
		}

		saveCtx := context.WithoutCancel(ctx)
		defer func() {
			// После паники обработчика ключ освобождается
			if p := recover(); p != nil {
				if err := store.Release(saveCtx, storeKey); err != nil {
					utils.LogError("failed to release idempotency key: %v", err)
				}
				panic(p)
			}
		}()

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(saveCtx, storeKey); err != nil {
				utils.LogError("failed to release idempotency key: %v", err)
			}
			return
		}
		resp := cache.StoredResponse{
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		}
		if err := store.Save(saveCtx, storeKey, resp); err != nil {
			utils.LogError("failed to save idempotent response: %v", err)
		}
	}
}
