package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bankcards/database"
	"bankcards/models"
	"bankcards/repository"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// UserService справочник пользователей: регистрация, поиск и удаление
type UserService struct {
	db        *database.Database
	cards     repository.CardRepository
	validator *validator.Validate
}

// CreateUserRequest данные для регистрации пользователя
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type UpdateUserRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=255"`
	Email string `json:"email" validate:"required,email,max=100"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// UserView внешнее представление пользователя без пароля
type UserView struct {
	ID        uint        `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

func ToUserView(user models.User) UserView {
	return UserView{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func NewUserService(db *database.Database, cards repository.CardRepository) *UserService {
	return &UserService{
		db:        db,
		cards:     cards,
		validator: newValidator(time.Now),
	}
}

// CreateUser регистрирует пользователя с ролью USER
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	return s.createUser(ctx, req, models.RoleUser)
}

// CreateAdmin регистрирует администратора
func (s *UserService) CreateAdmin(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	return s.createUser(ctx, req, models.RoleAdmin)
}

func (s *UserService) createUser(ctx context.Context, req CreateUserRequest, role models.Role) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashedPassword,
		Role:     role,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

// Authenticate проверяет email и пароль
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FindByEmail ищет пользователя по email (игнорируя регистр и пробелы)
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// ResolveUser возвращает идентификатор и роль пользователя
func (s *UserService) ResolveUser(ctx context.Context, id uint) (Principal, error) {
	user, err := s.findByID(ctx, id)
	if err != nil {
		return Principal{}, err
	}
	return Principal{ID: user.ID, Role: user.Role}, nil
}

// Get возвращает пользователя по ID
func (s *UserService) Get(ctx context.Context, id uint) (*UserView, error) {
	user, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := ToUserView(*user)
	return &view, nil
}

// List возвращает всех пользователей; неизвестный ключ сортировки
// заменяется сортировкой по имени
func (s *UserService) List(ctx context.Context, sortKey string) ([]UserView, error) {
	users, err := s.db.ListUsers(ctx, sortKey)
	if err != nil {
		return nil, err
	}

	views := make([]UserView, len(users))
	for i, user := range users {
		views[i] = ToUserView(user)
	}
	return views, nil
}

// Delete удаляет пользователя. Пользователя с картами удалить нельзя.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	if _, err := s.findByID(ctx, id); err != nil {
		return err
	}

	owned, err := s.cards.CountByOwner(ctx, id)
	if err != nil {
		return err
	}
	if owned > 0 {
		return fmt.Errorf("%w: %d card(s)", ErrUserHasCards, owned)
	}

	err = s.db.DeleteUser(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrReferenced):
		return ErrUserHasCards
	}
	return err
}

// Update меняет имя и email пользователя (администратор)
func (s *UserService) Update(ctx context.Context, id uint, req UpdateUserRequest) (*UserView, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	err := s.db.UpdateUser(ctx, id, req.Name, req.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicateKey):
		return nil, ErrDuplicateEmail
	case err != nil:
		return nil, err
	}
	return s.Get(ctx, id)
}

// ChangePassword меняет пароль после проверки старого.
// Сменить пароль может сам пользователь или администратор.
func (s *UserService) ChangePassword(ctx context.Context, principal Principal, id uint, req ChangePasswordRequest) error {
	if principal.ID != id && !principal.IsAdmin() {
		return ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return validationError(err)
	}

	user, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.db.UpdatePassword(ctx, id, hashed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *UserService) findByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
