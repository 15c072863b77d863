package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bankcards/config"
	"bankcards/database"
	"bankcards/models"
	"bankcards/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	user1 uint = 1
	user2 uint = 2
	admin uint = 100
)

var (
	principalU1    = Principal{ID: user1, Role: models.RoleUser}
	principalU2    = Principal{ID: user2, Role: models.RoleUser}
	principalAdmin = Principal{ID: admin, Role: models.RoleAdmin}
)

type fakeDirectory map[uint]Principal

func (d fakeDirectory) ResolveUser(_ context.Context, id uint) (Principal, error) {
	p, ok := d[id]
	if !ok {
		return Principal{}, ErrUserNotFound
	}
	return p, nil
}

var testDirectory = fakeDirectory{
	user1: principalU1,
	user2: principalU2,
	admin: principalAdmin,
}

var testLedger = config.LedgerConfig{
	TransferAttempts: 100,
	StoreTimeout:     5 * time.Second,
	RetryBackoff:     time.Millisecond,
}

var storeSeq atomic.Int64

func newSQLiteStore(t *testing.T) repository.CardRepository {
	t.Helper()
	db, err := database.NewDatabase(config.DBConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:ledger_%d?mode=memory&cache=shared", storeSeq.Add(1)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return database.NewCardStore(db.DB)
}

// forEachStore прогоняет тест на хранилище в памяти и на GORM/sqlite
func forEachStore(t *testing.T, test func(t *testing.T, store repository.CardRepository)) {
	t.Run("memory", func(t *testing.T) {
		test(t, repository.NewMemoryCardStore())
	})
	t.Run("gorm", func(t *testing.T) {
		test(t, newSQLiteStore(t))
	})
}

func oneYearAhead() time.Time {
	return time.Now().AddDate(1, 0, 0)
}

func seedCard(t *testing.T, svc *CardService, owner uint, number, balance string) string {
	t.Helper()
	ctx := context.Background()
	view, err := svc.Create(ctx, CreateCardRequest{Number: number, OwnerID: owner, ExpirationDate: oneYearAhead()})
	require.NoError(t, err)
	if balance != "0" {
		_, err = svc.SetBalance(ctx, view.ID, decimal.RequireFromString(balance))
		require.NoError(t, err)
	}
	return view.ID
}

func balanceOf(t *testing.T, svc *CardService, id string) decimal.Decimal {
	t.Helper()
	b, err := svc.GetBalance(context.Background(), principalAdmin, id)
	require.NoError(t, err)
	return b
}

func assertBalance(t *testing.T, svc *CardService, id, want string) {
	t.Helper()
	got := balanceOf(t, svc, id)
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "balance of %s: got %s want %s", id, got, want)
}

func TestCardService_Create(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repository.CardRepository) {
		svc := NewCardService(store, testDirectory, nil, testLedger)
		ctx := context.Background()

		view, err := svc.Create(ctx, CreateCardRequest{
			Number:         "1111222233334444",
			OwnerID:        user1,
			ExpirationDate: oneYearAhead(),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, view.ID)
		assert.Equal(t, user1, view.OwnerID)
		assert.Equal(t, "**** **** **** 4444", view.Number)
		assert.Equal(t, models.CardStatusActive, view.Status)
		assert.Equal(t, "0.00", view.Balance.StringFixed(2))

		stored, err := store.FindByID(ctx, view.ID)
		require.NoError(t, err)
		assert.Equal(t, "1111222233334444", stored.Number)
	})
}

func TestCardService_CreateNormalizesSpacedNumber(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repository.CardRepository) {
		svc := NewCardService(store, testDirectory, nil, testLedger)
		ctx := context.Background()

		view, err := svc.Create(ctx, CreateCardRequest{Number: "1111 2222 3333 4444", OwnerID: user1, ExpirationDate: oneYearAhead()})
		require.NoError(t, err)

		stored, err := store.FindByID(ctx, view.ID)
		require.NoError(t, err)
		assert.Equal(t, "1111222233334444", stored.Number)

		// тот же номер без пробелов считается дубликатом
		_, err = svc.Create(ctx, CreateCardRequest{Number: "1111222233334444", OwnerID: user2, ExpirationDate: oneYearAhead()})
		assert.ErrorIs(t, err, ErrDuplicateNumber)
	})
}

func TestCardService_CreateValidation(t *testing.T) {
	svc := NewCardService(repository.NewMemoryCardStore(), testDirectory, nil, testLedger)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateCardRequest
		want error
	}{
		{"short number", CreateCardRequest{Number: "1111", OwnerID: user1, ExpirationDate: oneYearAhead()}, ErrValidation},
		{"letters in number", CreateCardRequest{Number: "1111 2222 3333 44a4", OwnerID: user1, ExpirationDate: oneYearAhead()}, ErrValidation},
		{"double space", CreateCardRequest{Number: "1111  2222 3333 4444", OwnerID: user1, ExpirationDate: oneYearAhead()}, ErrValidation},
		{"expired", CreateCardRequest{Number: "1111222233334444", OwnerID: user1, ExpirationDate: time.Now().AddDate(0, 0, -1)}, ErrValidation},
		{"missing owner", CreateCardRequest{Number: "1111222233334444", ExpirationDate: oneYearAhead()}, ErrValidation},
		{"unknown owner", CreateCardRequest{Number: "1111222233334444", OwnerID: 42, ExpirationDate: oneYearAhead()}, ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCardService_CreateExpiringToday(t *testing.T) {
	svc := NewCardService(repository.NewMemoryCardStore(), testDirectory, nil, testLedger)
	_, err := svc.Create(context.Background(), CreateCardRequest{Number: "1111222233334444", OwnerID: user1, ExpirationDate: time.Now()})
	assert.NoError(t, err)
}

func TestCardService_CreateDuplicateNumber(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repository.CardRepository) {
		svc := NewCardService(store, testDirectory, nil, testLedger)
		ctx := context.Background()
		seedCard(t, svc, user1, "1111222233334444", "0")

		_, err := svc.Create(ctx, CreateCardRequest{Number: "1111222233334444", OwnerID: user2, ExpirationDate: oneYearAhead()})
		assert.ErrorIs(t, err, ErrDuplicateNumber)

		all, err := svc.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestCardService_ConcurrentCreateSameNumber(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repository.CardRepository) {
		svc := NewCardService(store, testDirectory, nil, testLedger)
		ctx := context.Background()

		const workers = 16
		var wg sync.WaitGroup
		var created, duplicates atomic.Int32
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := svc.Create(ctx, CreateCardRequest{Number: "4000 0000 0000 0002", OwnerID: user1, ExpirationDate: oneYearAhead()})
				switch {
				case err == nil:
					created.Add(1)
				case assert.ErrorIs(t, err, ErrDuplicateNumber):
					duplicates.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), created.Load())
		assert.Equal(t, int32(workers-1), duplicates.Load())
	})
}

func TestCardService_GetAccess(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repository.CardRepository) {
		svc := NewCardService(store, testDirectory, nil, testLedger)
		ctx := context.Background()
		id := seedCard(t, svc, user1, "1111222233334444", "10")

		view, err := svc.Get(ctx, principalU1, id)
		require.NoError(t, err)
		assert.Equal(t, "**** **** **** 4444", view.Number)

		_, err = svc.Get(ctx, principalAdmin, id)
		require.NoError(t, err)

		_, err = svc.Get(ctx, principalU2, id)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = svc.GetBalance(ctx, principalU2, id)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = svc.Get(ctx, principalU1, "missing")
		assert.ErrorIs(t, err, ErrCardNotFound)

		balance, err := svc.GetBalance(ctx, principalU1, id)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(10)))
	})
}

func TestCardService_ListMine(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repository.CardRepository) {
		svc := NewCardService(store, testDirectory, nil, testLedger)
		ctx := context.Background()

		seedCard(t, svc, user1, "1000000000000001", "30")
		seedCard(t, svc, user1, "1000000000000002", "10")
		seedCard(t, svc, user1, "1000000000000003", "20")
		seedCard(t, svc, user2, "2000000000000001", "99")

		page, err := svc.ListMine(ctx, principalU1, repository.PageRequest{Size: 2, Sort: "balance", Direction: repository.SortAsc})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.TotalElements)
		assert.Equal(t, 2, page.TotalPages)
		require.Len(t, page.Content, 2)
		assert.Equal(t, "**** **** **** 0002", page.Content[0].Number)
		assert.Equal(t, "**** **** **** 0003", page.Content[1].Number)
		for _, card := range page.Content {
			assert.Equal(t, user1, card.OwnerID)
		}

		page, err = svc.ListMine(ctx, principalU2, repository.PageRequest{Sort: "not-a-column"})
		require.NoError(t, err)
		require.Len(t, page.Content, 1)

		// администратор видит через ListMine только свои карты
		page, err = svc.ListMine(ctx, principalAdmin, repository.PageRequest{})
		require.NoError(t, err)
		assert.Empty(t, page.Content)

		all, err := svc.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})
}

func TestCardService_StatusChanges(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repository.CardRepository) {
		svc := NewCardService(store, testDirectory, nil, testLedger)
		ctx := context.Background()
		id := seedCard(t, svc, user1, "1111222233334444", "0")

		_, err := svc.Block(ctx, principalU2, id)
		assert.ErrorIs(t, err, ErrForbidden)

		view, err := svc.Block(ctx, principalU1, id)
		require.NoError(t, err)
		assert.Equal(t, models.CardStatusBlocked, view.Status)

		// повторная блокировка
		view, err = svc.Block(ctx, principalU1, id)
		require.NoError(t, err)
		assert.Equal(t, models.CardStatusBlocked, view.Status)

		view, err = svc.UpdateStatus(ctx, id, models.CardStatusActive)
		require.NoError(t, err)
		assert.Equal(t, models.CardStatusActive, view.Status)

		_, err = svc.UpdateStatus(ctx, id, "EXPIRED")
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.UpdateStatus(ctx, "missing", models.CardStatusBlocked)
		assert.ErrorIs(t, err, ErrCardNotFound)

		_, err = svc.Block(ctx, principalU1, "missing")
		assert.ErrorIs(t, err, ErrCardNotFound)
	})
}

func TestCardService_SetBalanceValidation(t *testing.T) {
	svc := NewCardService(repository.NewMemoryCardStore(), testDirectory, nil, testLedger)
	ctx := context.Background()
	id := seedCard(t, svc, user1, "1111222233334444", "0")

	_, err := svc.SetBalance(ctx, id, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.SetBalance(ctx, id, decimal.RequireFromString("1.005"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.SetBalance(ctx, "missing", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrCardNotFound)

	view, err := svc.SetBalance(ctx, id, decimal.RequireFromString("12.34"))
	require.NoError(t, err)
	assert.Equal(t, "12.34", view.Balance.StringFixed(2))
}

func TestCardService_Delete(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repository.CardRepository) {
		svc := NewCardService(store, testDirectory, nil, testLedger)
		ctx := context.Background()
		id := seedCard(t, svc, user1, "1111222233334444", "0")

		require.NoError(t, svc.Delete(ctx, id))
		assert.ErrorIs(t, svc.Delete(ctx, id), ErrCardNotFound)

		_, err := svc.Get(ctx, principalAdmin, id)
		assert.ErrorIs(t, err, ErrCardNotFound)
	})
}
