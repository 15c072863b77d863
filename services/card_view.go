package services

import (
	"encoding/json"
	"time"

	"bankcards/models"
	"bankcards/utils"

	"github.com/shopspring/decimal"
)

// DateLayout формат дат карт во внешнем представлении (dd.MM.yyyy)
const DateLayout = "02.01.2006"

// CardView внешнее представление карты: номер всегда замаскирован
type CardView struct {
	ID             string            `json:"id"`
	OwnerID        uint              `json:"ownerId"`
	Number         string            `json:"number"`
	ExpirationDate time.Time         `json:"expirationDate"`
	Status         models.CardStatus `json:"status"`
	Balance        decimal.Decimal   `json:"balance"`
}

// ToCardView преобразует запись карты во внешнее представление
func ToCardView(card models.Card) CardView {
	return CardView{
		ID:             card.ID,
		OwnerID:        card.OwnerID,
		Number:         utils.MaskCardNumber(card.Number),
		ExpirationDate: card.ExpirationDate,
		Status:         card.Status,
		Balance:        card.Balance,
	}
}

func (v CardView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID             string            `json:"id"`
		OwnerID        uint              `json:"ownerId"`
		Number         string            `json:"number"`
		ExpirationDate string            `json:"expirationDate"`
		Status         models.CardStatus `json:"status"`
		Balance        string            `json:"balance"`
	}{
		ID:             v.ID,
		OwnerID:        v.OwnerID,
		Number:         v.Number,
		ExpirationDate: v.ExpirationDate.Format(DateLayout),
		Status:         v.Status,
		Balance:        v.Balance.StringFixed(2),
	})
}
