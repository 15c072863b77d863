package database

import (
	"context"
	"fmt"

	"bankcards/models"
	"bankcards/repository"
)

// Методы для работы с пользователями

func (d *Database) CreateUser(ctx context.Context, user *models.User) error {
	return translateError(d.DB.WithContext(ctx).Create(user).Error)
}

func (d *Database) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := d.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// GetUserByEmail ищет пользователя по email без учета регистра и пробелов
func (d *Database) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.DB.WithContext(ctx).
		Where("LOWER(TRIM(email)) = LOWER(TRIM(?))", email).
		First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// ListUsers возвращает всех пользователей, отсортированных по допустимому ключу
func (d *Database) ListUsers(ctx context.Context, sortKey string) ([]models.User, error) {
	column, ok := repository.UserSortColumns[sortKey]
	if !ok {
		column = repository.UserSortColumns[repository.DefaultUserSort]
	}

	var users []models.User
	err := d.DB.WithContext(ctx).Order(fmt.Sprintf("%s, id", column)).Find(&users).Error
	if err != nil {
		return nil, translateError(err)
	}
	return users, nil
}

func (d *Database) DeleteUser(ctx context.Context, id uint) error {
	res := d.DB.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateUser сохраняет имя и email пользователя
func (d *Database) UpdateUser(ctx context.Context, id uint, name, email string) error {
	res := d.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "email": email})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (d *Database) UpdatePassword(ctx context.Context, id uint, hash string) error {
	res := d.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("password", hash)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
