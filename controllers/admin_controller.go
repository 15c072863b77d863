package controllers

import (
	"net/http"

	"bankcards/utils"

	"github.com/gin-gonic/gin"
)

// AdminController служебные обработчики
type AdminController struct {
	metrics *utils.Metrics
}

func NewAdminController(metrics *utils.Metrics) *AdminController {
	return &AdminController{metrics: metrics}
}

// Metrics возвращает снимок счетчиков процесса
func (h *AdminController) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetMetricsSnapshot())
}

func (h *AdminController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
