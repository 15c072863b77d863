package services

import "errors"

var (
	ErrCardNotFound    = errors.New("card not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateNumber = errors.New("card with this number already exists")
	ErrDuplicateEmail  = errors.New("user with this email already exists")
	ErrUserHasCards    = errors.New("user still owns cards")
	ErrForbidden       = errors.New("access to card denied")
	ErrIllegalTransfer = errors.New("illegal transfer")
	ErrNotEnoughFunds  = errors.New("not enough funds")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrValidation      = errors.New("validation failed")

	// ErrInvalidCredentials неверная пара email/пароль при входе
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrTemporarilyUnavailable хранилище не ответило вовремя или
	// конфликт не разрешился за отведенное число попыток
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable, retry later")
)
