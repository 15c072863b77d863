package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bankcards/models"
	"bankcards/repository"

	"gorm.io/gorm"
)

// CardStore реализация repository.CardRepository на GORM.
//
// Изменения записываются одной транзакцией условными UPDATE
// (WHERE id = ? AND version = ?) в порядке возрастания id. Строка,
// не совпавшая по версии, откатывает всю транзакцию с repository.ErrConflict.
type CardStore struct {
	db *gorm.DB
}

var _ repository.CardRepository = (*CardStore)(nil)

// NewCardStore создает хранилище карт
func NewCardStore(db *gorm.DB) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) Insert(ctx context.Context, card *models.Card) error {
	if err := s.db.WithContext(ctx).Create(card).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (s *CardStore) FindByID(ctx context.Context, id string) (*models.Card, error) {
	var card models.Card
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&card).Error; err != nil {
		return nil, translateError(err)
	}
	return &card, nil
}

func (s *CardStore) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Card{}).Where("number = ?", number).Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

func (s *CardStore) AtomicUpdate(ctx context.Context, cards ...*models.Card) error {
	ordered := make([]*models.Card, len(cards))
	copy(ordered, cards)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, card := range ordered {
			res := tx.Model(&models.Card{}).
				Where("id = ? AND version = ?", card.ID, card.Version).
				Updates(map[string]interface{}{
					"status":     card.Status,
					"balance":    card.Balance,
					"version":    gorm.Expr("version + 1"),
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("card %s: %w", card.ID, repository.ErrConflict)
			}
		}
		return nil
	})
	if err != nil {
		return translateError(err)
	}

	for _, card := range cards {
		card.Version++
		card.UpdatedAt = now
	}
	return nil
}

func (s *CardStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Card{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *CardStore) FindByOwner(ctx context.Context, ownerID uint, req repository.PageRequest) (repository.Page[models.Card], error) {
	req = req.Normalize(repository.CardSortColumns, repository.DefaultCardSort)
	column := repository.CardSortColumns[req.Sort]

	owned := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Card{}).Where("owner_id = ?", ownerID)
	}

	var total int64
	if err := owned().Count(&total).Error; err != nil {
		return repository.Page[models.Card]{}, translateError(err)
	}

	var cards []models.Card
	err := owned().
		Order(fmt.Sprintf("%s %s, id %s", column, req.Direction, req.Direction)).
		Offset(req.Offset()).
		Limit(req.Size).
		Find(&cards).Error
	if err != nil {
		return repository.Page[models.Card]{}, translateError(err)
	}
	return repository.NewPage(cards, req, total), nil
}

func (s *CardStore) FindAll(ctx context.Context) ([]models.Card, error) {
	var cards []models.Card
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&cards).Error; err != nil {
		return nil, translateError(err)
	}
	return cards, nil
}

func (s *CardStore) CountByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Card{}).Where("owner_id = ?", ownerID).Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return count, nil
}
