package controllers

import (
	"errors"
	"net/http"

	"bankcards/services"
	"bankcards/utils"

	"github.com/gin-gonic/gin"
)

// errorStatus сопоставляет ошибки ядра HTTP-статусам
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrCardNotFound), errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateNumber),
		errors.Is(err, services.ErrDuplicateEmail),
		errors.Is(err, services.ErrUserHasCards):
		return http.StatusConflict
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotEnoughFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrIllegalTransfer),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTemporarilyUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError пишет ответ с ошибкой; внутренние ошибки не раскрываются клиенту
func respondError(c *gin.Context, err error) {
	status := errorStatus(err)
	_ = c.Error(err)
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	if status == http.StatusInternalServerError {
		utils.GetMetrics().RecordError(err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
