package controllers

import (
	"net/http"
	"strings"
	"time"

	"bankcards/middleware"
	"bankcards/models"
	"bankcards/repository"
	"bankcards/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CardController обработчики операций с картами
type CardController struct {
	cards *services.CardService
}

type CreateCardRequest struct {
	Number         string `json:"number" binding:"required"`
	OwnerID        uint   `json:"ownerId" binding:"required"`
	ExpirationDate string `json:"expirationDate" binding:"required"` // dd.MM.yyyy
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SetBalanceRequest struct {
	Balance decimal.Decimal `json:"balance"`
}

type TransferRequest struct {
	FromCardID string          `json:"fromCardId" binding:"required"`
	ToCardID   string          `json:"toCardId" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

type ListCardsQuery struct {
	Page      int    `form:"page"`
	Size      int    `form:"size"`
	Sort      string `form:"sort"`
	Direction string `form:"direction"`
}

type BalanceResponse struct {
	CardID  string `json:"cardId"`
	Balance string `json:"balance"`
}

func NewCardController(cards *services.CardService) *CardController {
	return &CardController{cards: cards}
}

// Create выпускает карту (администратор)
func (h *CardController) Create(c *gin.Context) {
	var req CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	expiration, err := time.Parse(services.DateLayout, strings.TrimSpace(req.ExpirationDate))
	if err != nil {
		badRequest(c, "expirationDate must use dd.MM.yyyy format")
		return
	}

	card, err := h.cards.Create(c.Request.Context(), services.CreateCardRequest{
		Number:         req.Number,
		OwnerID:        req.OwnerID,
		ExpirationDate: expiration,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, card)
}

// ListAll возвращает все карты (администратор)
func (h *CardController) ListAll(c *gin.Context) {
	cards, err := h.cards.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

// ListMine возвращает страницу карт текущего пользователя
func (h *CardController) ListMine(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var query ListCardsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "Invalid pagination parameters")
		return
	}

	page, err := h.cards.ListMine(c.Request.Context(), principal, repository.PageRequest{
		Page:      query.Page,
		Size:      query.Size,
		Sort:      query.Sort,
		Direction: repository.SortDirection(query.Direction),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *CardController) Get(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	card, err := h.cards.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardController) GetBalance(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)
	id := c.Param("id")

	balance, err := h.cards.GetBalance(c.Request.Context(), principal, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{CardID: id, Balance: balance.StringFixed(2)})
}

// Block блокирует карту владельцем или администратором
func (h *CardController) Block(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	card, err := h.cards.Block(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// UpdateStatus меняет статус карты (администратор)
func (h *CardController) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	status := models.CardStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	card, err := h.cards.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// SetBalance устанавливает баланс карты (администратор)
func (h *CardController) SetBalance(c *gin.Context) {
	var req SetBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	card, err := h.cards.SetBalance(c.Request.Context(), c.Param("id"), req.Balance)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// Delete удаляет карту (администратор)
func (h *CardController) Delete(c *gin.Context) {
	if err := h.cards.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Transfer переводит средства между картами текущего пользователя
func (h *CardController) Transfer(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	err := h.cards.Transfer(c.Request.Context(), principal, services.TransferRequest{
		FromID: req.FromCardID,
		ToID:   req.ToCardID,
		Amount: req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
