package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankcards/config"
	"bankcards/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken токен отсутствует, просрочен или подписан чужим ключом
var ErrInvalidToken = errors.New("invalid token")

// Claims содержимое JWT
type Claims struct {
	UserID uint        `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Token выданный токен
type Token struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	UserID    uint      `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthService регистрация, вход и проверка токенов
type AuthService struct {
	users  *UserService
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(users *UserService, cfg config.JWTConfig) *AuthService {
	ttl := time.Duration(cfg.ExpiresIn) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		users:  users,
		secret: []byte(cfg.SecretKey),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SignUp регистрирует пользователя и сразу выдает токен
func (s *AuthService) SignUp(ctx context.Context, req CreateUserRequest) (*Token, *UserView, error) {
	user, err := s.users.CreateUser(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, nil, err
	}
	view := ToUserView(*user)
	return token, &view, nil
}

// SignIn проверяет учетные данные и выдает токен
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Token, error) {
	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.IssueToken(user)
}

// IssueToken создает JWT токен
func (s *AuthService) IssueToken(user *models.User) (*Token, error) {
	now := s.now()
	expirationTime := now.Add(s.ttl)
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{
		Token:     tokenString,
		Email:     user.Email,
		UserID:    user.ID,
		ExpiresAt: expirationTime,
	}, nil
}

// ParseToken проверяет подпись и срок действия, возвращая principal
func (s *AuthService) ParseToken(tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == 0 {
		return Principal{}, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return Principal{ID: claims.UserID, Role: claims.Role}, nil
}
