package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"bankcards/models"
	"bankcards/repository"
	"bankcards/utils"

	"github.com/shopspring/decimal"
)

// TransferRequest перевод между двумя картами
type TransferRequest struct {
	FromID string
	ToID   string
	Amount decimal.Decimal
}

// Transfer переводит сумму между картами principal.
//
// Обе карты читаются вместе с версиями и записываются одним AtomicUpdate.
// Если любая из них изменилась после чтения, попытка целиком повторяется
// с новыми данными, поэтому списание всегда проверяется по актуальному балансу.
func (s *CardService) Transfer(ctx context.Context, principal Principal, req TransferRequest) error {
	startTime := time.Now()

	err := s.transfer(ctx, principal, req)
	s.metrics.RecordCardOperation(utils.OpCardTransfer, err)
	utils.LogOperation("card.transfer", startTime, err)
	return err
}

func (s *CardService) transfer(ctx context.Context, principal Principal, req TransferRequest) error {
	if req.FromID == req.ToID {
		return fmt.Errorf("%w: source and destination card are the same", ErrIllegalTransfer)
	}
	if !req.Amount.IsPositive() || !hasCents(req.Amount) {
		return fmt.Errorf("%w: amount must be positive with at most 2 fraction digits", ErrInvalidAmount)
	}

	var from, to *models.Card
	err := s.retry(ctx, func(ctx context.Context) error {
		var err error
		if from, err = s.load(ctx, req.FromID); err != nil {
			return err
		}
		if to, err = s.load(ctx, req.ToID); err != nil {
			return err
		}

		if !CanAccess(principal, from) || !CanAccess(principal, to) {
			return ErrForbidden
		}
		if from.IsBlocked() || to.IsBlocked() {
			return fmt.Errorf("%w: card is blocked", ErrIllegalTransfer)
		}
		if !from.HasSufficientBalance(req.Amount) {
			return ErrNotEnoughFunds
		}

		from.Withdraw(req.Amount)
		to.Deposit(req.Amount)

		return s.withStore(ctx, func(ctx context.Context) error {
			return s.store.AtomicUpdate(ctx, from, to)
		})
	})
	if err != nil {
		return err
	}

	s.notifier.TransferCompleted(ctx, ToCardView(*from), ToCardView(*to), req.Amount)
	return nil
}

// retry повторяет операцию при конфликте версий с растущей паузой и
// случайным разбросом. Смысловые ошибки возвращаются сразу.
func (s *CardService) retry(ctx context.Context, op func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		s.metrics.RecordConflict()

		if attempt >= s.attempts {
			utils.Logger().WithField("attempts", attempt).Warn("optimistic conflict not resolved")
			return fmt.Errorf("%w: concurrent updates did not settle after %d attempts", ErrTemporarilyUnavailable, attempt)
		}
		if s.backoff > 0 {
			pause := s.backoff * time.Duration(attempt)
			time.Sleep(pause + rand.N(s.backoff))
		}
	}
}
