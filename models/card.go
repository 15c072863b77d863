package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus представляет статус карты
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
)

// Valid сообщает, является ли значение известным статусом карты
func (s CardStatus) Valid() bool {
	switch s {
	case CardStatusActive, CardStatusBlocked:
		return true
	}
	return false
}

// Card представляет банковскую карту
type Card struct {
	ID             string          `gorm:"column:id;primaryKey;type:varchar(36)"`
	Number         string          `gorm:"column:number;type:varchar(16);uniqueIndex:idx_cards_number;not null"`
	OwnerID        uint            `gorm:"column:owner_id;not null;index"`
	ExpirationDate time.Time       `gorm:"column:expiration_date;type:date;not null"`
	Status         CardStatus      `gorm:"column:status;type:varchar(20);not null;default:'ACTIVE'"`
	Balance        decimal.Decimal `gorm:"column:balance;type:decimal(20,2);not null"`
	Version        int64           `gorm:"column:version;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at"`
}

// TableName возвращает имя таблицы для модели Card
func (Card) TableName() string {
	return "cards"
}

// IsBlocked сообщает, заблокирована ли карта
func (c *Card) IsBlocked() bool {
	return c.Status == CardStatusBlocked
}

// IsOwnedBy сообщает, принадлежит ли карта пользователю
func (c *Card) IsOwnedBy(userID uint) bool {
	return c.OwnerID == userID
}

// HasSufficientBalance проверяет, хватает ли средств для списания
func (c *Card) HasSufficientBalance(amount decimal.Decimal) bool {
	return c.Balance.GreaterThanOrEqual(amount)
}

func (c *Card) Withdraw(amount decimal.Decimal) {
	c.Balance = c.Balance.Sub(amount)
}

func (c *Card) Deposit(amount decimal.Decimal) {
	c.Balance = c.Balance.Add(amount)
}

// Clone возвращает независимую копию записи
func (c *Card) Clone() *Card {
	cp := *c
	return &cp
}
