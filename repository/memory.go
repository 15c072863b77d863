package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"bankcards/models"
)

// MemoryCardStore хранилище карт в памяти. Записи хранятся копиями,
// поэтому вызывающий код не может изменить их в обход AtomicUpdate.
type MemoryCardStore struct {
	mu      sync.RWMutex
	cards   map[string]*models.Card
	numbers map[string]string
	now     func() time.Time
}

// NewMemoryCardStore создает пустое хранилище
func NewMemoryCardStore() *MemoryCardStore {
	return &MemoryCardStore{
		cards:   make(map[string]*models.Card),
		numbers: make(map[string]string),
		now:     time.Now,
	}
}

func (s *MemoryCardStore) Insert(ctx context.Context, card *models.Card) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.numbers[card.Number]; ok {
		return ErrDuplicateKey
	}
	if _, ok := s.cards[card.ID]; ok {
		return ErrDuplicateKey
	}

	now := s.now()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now

	s.cards[card.ID] = card.Clone()
	s.numbers[card.Number] = card.ID
	return nil
}

func (s *MemoryCardStore) FindByID(ctx context.Context, id string) (*models.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, ok := s.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	return card.Clone(), nil
}

func (s *MemoryCardStore) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.numbers[number]
	return ok, nil
}

func (s *MemoryCardStore) AtomicUpdate(ctx context.Context, cards ...*models.Card) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// сначала проверяем все версии, затем применяем изменения
	for _, card := range cards {
		stored, ok := s.cards[card.ID]
		if !ok || stored.Version != card.Version {
			return ErrConflict
		}
	}

	now := s.now()
	for _, card := range cards {
		stored := s.cards[card.ID]
		stored.Status = card.Status
		stored.Balance = card.Balance
		stored.Version++
		stored.UpdatedAt = now

		card.Version = stored.Version
		card.UpdatedAt = now
	}
	return nil
}

func (s *MemoryCardStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.numbers, card.Number)
	delete(s.cards, id)
	return nil
}

func (s *MemoryCardStore) FindByOwner(ctx context.Context, ownerID uint, req PageRequest) (Page[models.Card], error) {
	if err := ctx.Err(); err != nil {
		return Page[models.Card]{}, err
	}
	req = req.Normalize(CardSortColumns, DefaultCardSort)

	s.mu.RLock()
	var owned []models.Card
	for _, card := range s.cards {
		if card.OwnerID == ownerID {
			owned = append(owned, *card)
		}
	}
	s.mu.RUnlock()

	less := cardLess(req.Sort)
	sort.SliceStable(owned, func(i, j int) bool {
		a, b := &owned[i], &owned[j]
		if req.Direction == SortDesc {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.ID < b.ID
	})

	total := int64(len(owned))
	start := req.Offset()
	if start > len(owned) {
		start = len(owned)
	}
	end := start + req.Size
	if end > len(owned) {
		end = len(owned)
	}
	return NewPage(owned[start:end], req, total), nil
}

func cardLess(key string) func(a, b *models.Card) bool {
	switch key {
	case "balance":
		return func(a, b *models.Card) bool { return a.Balance.LessThan(b.Balance) }
	case "status":
		return func(a, b *models.Card) bool { return a.Status < b.Status }
	case "createdAt":
		return func(a, b *models.Card) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return func(a, b *models.Card) bool { return a.ExpirationDate.Before(b.ExpirationDate) }
	}
}

func (s *MemoryCardStore) FindAll(ctx context.Context) ([]models.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Card, 0, len(s.cards))
	for _, card := range s.cards {
		all = append(all, *card)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

func (s *MemoryCardStore) CountByOwner(ctx context.Context, ownerID uint) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, card := range s.cards {
		if card.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}
