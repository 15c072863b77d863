// Package repository описывает контракт хранилища карт и содержит
// эталонную реализацию в памяти.
package repository

import (
	"context"
	"errors"

	"bankcards/models"
)

var (
	// ErrNotFound запись отсутствует
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey нарушено ограничение уникальности
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrReferenced запись нельзя удалить: на нее ссылаются другие записи
	ErrReferenced = errors.New("record is referenced")
	// ErrConflict запись изменена конкурентной операцией, операцию можно повторить
	ErrConflict = errors.New("concurrent modification")
)

// CardRepository хранилище карт. Единственный разделяемый изменяемый ресурс ядра:
// любое изменение карты проходит через AtomicUpdate с проверкой версии.
type CardRepository interface {
	// Insert добавляет карту; повтор номера дает ErrDuplicateKey
	Insert(ctx context.Context, card *models.Card) error
	FindByID(ctx context.Context, id string) (*models.Card, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	// AtomicUpdate записывает статус и баланс всех карт одной транзакцией.
	// Каждая карта должна нести версию, с которой она была прочитана;
	// если хотя бы одна запись изменилась, ничего не записывается и
	// возвращается ErrConflict. При успехе версии в переданных картах увеличиваются.
	AtomicUpdate(ctx context.Context, cards ...*models.Card) error
	Delete(ctx context.Context, id string) error
	FindByOwner(ctx context.Context, ownerID uint, req PageRequest) (Page[models.Card], error)
	FindAll(ctx context.Context) ([]models.Card, error)
	CountByOwner(ctx context.Context, ownerID uint) (int64, error)
}
