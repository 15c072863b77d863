package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankcards/config"
	"bankcards/models"
	"bankcards/repository"
	"bankcards/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserDirectory разрешает идентификатор пользователя в его атрибуты
type UserDirectory interface {
	ResolveUser(ctx context.Context, id uint) (Principal, error)
}

// Notifier получает уведомления о выполненных операциях с картами
type Notifier interface {
	CardBlocked(ctx context.Context, card CardView)
	TransferCompleted(ctx context.Context, from, to CardView, amount decimal.Decimal)
}

// CreateCardRequest данные для выпуска карты
type CreateCardRequest struct {
	Number         string    `validate:"required,cardnumber"`
	OwnerID        uint      `validate:"required"`
	ExpirationDate time.Time `validate:"required,notpast"`
}

// CardService ядро операций с картами: проверка прав, инвариантов
// и атомарная запись через хранилище
type CardService struct {
	store        repository.CardRepository
	users        UserDirectory
	notifier     Notifier
	validator    *validator.Validate
	metrics      *utils.Metrics
	now          func() time.Time
	attempts     int
	backoff      time.Duration
	storeTimeout time.Duration
}

// NewCardService создает новый экземпляр CardService
func NewCardService(store repository.CardRepository, users UserDirectory, notifier Notifier, cfg config.LedgerConfig) *CardService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if cfg.TransferAttempts < 1 {
		cfg.TransferAttempts = 1
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}

	s := &CardService{
		store:        store,
		users:        users,
		notifier:     notifier,
		metrics:      utils.GetMetrics(),
		now:          time.Now,
		attempts:     cfg.TransferAttempts,
		backoff:      cfg.RetryBackoff,
		storeTimeout: cfg.StoreTimeout,
	}
	s.validator = newValidator(func() time.Time { return s.now() })
	return s
}

// Create выпускает новую карту со статусом ACTIVE и нулевым балансом
func (s *CardService) Create(ctx context.Context, req CreateCardRequest) (*CardView, error) {
	startTime := time.Now()

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	number := utils.NormalizeCardNumber(req.Number)

	if _, err := s.users.ResolveUser(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	// Быстрая проверка; уникальность гарантирует индекс хранилища
	var exists bool
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		exists, err = s.store.ExistsByNumber(ctx, number)
		return err
	})
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateNumber
	}

	card := &models.Card{
		ID:             uuid.NewString(),
		Number:         number,
		OwnerID:        req.OwnerID,
		ExpirationDate: dateOnly(req.ExpirationDate),
		Status:         models.CardStatusActive,
		Balance:        decimal.Zero,
		Version:        1,
	}
	err = s.withStore(ctx, func(ctx context.Context) error {
		return s.store.Insert(ctx, card)
	})
	if errors.Is(err, repository.ErrDuplicateKey) {
		err = ErrDuplicateNumber
	}
	s.metrics.RecordCardOperation(utils.OpCardCreate, err)
	utils.LogOperation("card.create", startTime, err)
	if err != nil {
		return nil, err
	}

	view := ToCardView(*card)
	return &view, nil
}

// Get возвращает карту, если principal имеет к ней доступ
func (s *CardService) Get(ctx context.Context, principal Principal, id string) (*CardView, error) {
	card, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanAccess(principal, card) {
		return nil, ErrForbidden
	}
	view := ToCardView(*card)
	return &view, nil
}

// GetBalance возвращает баланс карты с той же проверкой доступа, что и Get
func (s *CardService) GetBalance(ctx context.Context, principal Principal, id string) (decimal.Decimal, error) {
	view, err := s.Get(ctx, principal, id)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return view.Balance, nil
}

// ListMine возвращает страницу карт, принадлежащих principal
func (s *CardService) ListMine(ctx context.Context, principal Principal, req repository.PageRequest) (repository.Page[CardView], error) {
	var page repository.Page[models.Card]
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		page, err = s.store.FindByOwner(ctx, principal.ID, req)
		return err
	})
	if err != nil {
		return repository.Page[CardView]{}, err
	}
	return repository.MapPage(page, ToCardView), nil
}

// ListAll возвращает все карты; доступ ограничивается до вызова
func (s *CardService) ListAll(ctx context.Context) ([]CardView, error) {
	var cards []models.Card
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		cards, err = s.store.FindAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	views := make([]CardView, len(cards))
	for i, card := range cards {
		views[i] = ToCardView(card)
	}
	return views, nil
}

// UpdateStatus административная смена статуса на любое известное значение
func (s *CardService) UpdateStatus(ctx context.Context, id string, status models.CardStatus) (*CardView, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown card status %q", ErrValidation, status)
	}

	card, err := s.mutate(ctx, id, func(card *models.Card) (bool, error) {
		if card.Status == status {
			return false, nil
		}
		card.Status = status
		return true, nil
	})
	s.metrics.RecordCardOperation(utils.OpCardStatus, err)
	if err != nil {
		return nil, err
	}

	view := ToCardView(*card)
	return &view, nil
}

// Block блокирует карту по запросу владельца или администратора.
// Повторная блокировка ничего не меняет.
func (s *CardService) Block(ctx context.Context, principal Principal, id string) (*CardView, error) {
	changed := false
	card, err := s.mutate(ctx, id, func(card *models.Card) (bool, error) {
		if !CanAccess(principal, card) {
			return false, ErrForbidden
		}
		if card.IsBlocked() {
			changed = false
			return false, nil
		}
		card.Status = models.CardStatusBlocked
		changed = true
		return true, nil
	})
	s.metrics.RecordCardOperation(utils.OpCardBlock, err)
	if err != nil {
		return nil, err
	}

	view := ToCardView(*card)
	if changed {
		utils.Logger().WithField("card_id", id).Info("card blocked")
		s.notifier.CardBlocked(ctx, view)
	}
	return &view, nil
}

// SetBalance административная установка баланса
func (s *CardService) SetBalance(ctx context.Context, id string, amount decimal.Decimal) (*CardView, error) {
	if amount.IsNegative() || !hasCents(amount) {
		return nil, fmt.Errorf("%w: balance must be non-negative with at most 2 fraction digits", ErrInvalidAmount)
	}

	card, err := s.mutate(ctx, id, func(card *models.Card) (bool, error) {
		if card.Balance.Equal(amount) {
			return false, nil
		}
		card.Balance = amount
		return true, nil
	})
	s.metrics.RecordCardOperation(utils.OpCardBalance, err)
	if err != nil {
		return nil, err
	}

	view := ToCardView(*card)
	return &view, nil
}

// Delete удаляет карту; проверка прав выполняется до вызова
func (s *CardService) Delete(ctx context.Context, id string) error {
	err := s.withStore(ctx, func(ctx context.Context) error {
		return s.store.Delete(ctx, id)
	})
	if errors.Is(err, repository.ErrNotFound) {
		err = ErrCardNotFound
	}
	s.metrics.RecordCardOperation(utils.OpCardDelete, err)
	return err
}

// load читает карту, переводя ошибки хранилища в ошибки домена
func (s *CardService) load(ctx context.Context, id string) (*models.Card, error) {
	var card *models.Card
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		card, err = s.store.FindByID(ctx, id)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

// mutate читает карту, применяет изменение и записывает его с проверкой
// версии, повторяя цикл при конфликте
func (s *CardService) mutate(ctx context.Context, id string, apply func(card *models.Card) (bool, error)) (*models.Card, error) {
	var result *models.Card
	err := s.retry(ctx, func(ctx context.Context) error {
		card, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		changed, err := apply(card)
		if err != nil {
			return err
		}
		if changed {
			err = s.withStore(ctx, func(ctx context.Context) error {
				return s.store.AtomicUpdate(ctx, card)
			})
			if err != nil {
				return err
			}
		}
		result = card
		return nil
	})
	return result, err
}

// withStore выполняет обращение к хранилищу с ограничением по времени.
// Отмена вызывающего контекста не прерывает начатую запись.
func (s *CardService) withStore(ctx context.Context, fn func(ctx context.Context) error) error {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	err := fn(storeCtx)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(storeCtx.Err(), context.DeadlineExceeded)) {
		s.metrics.RecordStoreTimeout()
		return fmt.Errorf("%w: card store did not respond within %s", ErrTemporarilyUnavailable, s.storeTimeout)
	}
	return err
}

// hasCents проверяет, что у суммы не больше двух знаков после запятой
func hasCents(amount decimal.Decimal) bool {
	return amount.Round(2).Equal(amount)
}
