package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bankcards/config"
	"bankcards/database"
	"bankcards/models"
	"bankcards/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	db    *database.Database
	cards repository.CardRepository
	users *UserService
	auth  *AuthService
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	db, err := database.NewDatabase(config.DBConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:users_%d?mode=memory&cache=shared", storeSeq.Add(1)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cards := database.NewCardStore(db.DB)
	users := NewUserService(db, cards)
	return &userFixture{
		db:    db,
		cards: cards,
		users: users,
		auth:  NewAuthService(users, config.JWTConfig{SecretKey: "test-secret", ExpiresIn: 1}),
	}
}

func TestUserService_CreateAndResolve(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, CreateUserRequest{Name: "Ivan", Email: " Ivan@Example.com ", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "ivan@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "secret-pass", user.Password)

	principal, err := f.users.ResolveUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, Principal{ID: user.ID, Role: models.RoleUser}, principal)

	_, err = f.users.ResolveUser(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.users.CreateUser(ctx, CreateUserRequest{Name: "Other", Email: "ivan@example.com", Password: "secret-pass"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = f.users.CreateUser(ctx, CreateUserRequest{Name: "Short", Email: "not-an-email", Password: "123"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserService_Authenticate(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	_, err := f.users.CreateUser(ctx, CreateUserRequest{Name: "Anna", Email: "anna@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	user, err := f.users.Authenticate(ctx, "ANNA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "Anna", user.Name)

	_, err = f.users.Authenticate(ctx, "anna@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.users.Authenticate(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_ListSortsByAllowedKey(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	for _, u := range []CreateUserRequest{
		{Name: "Boris", Email: "a-boris@example.com", Password: "password1"},
		{Name: "Alla", Email: "z-alla@example.com", Password: "password1"},
	} {
		_, err := f.users.CreateUser(ctx, u)
		require.NoError(t, err)
	}

	byName, err := f.users.List(ctx, "name")
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, "Alla", byName[0].Name)

	byEmail, err := f.users.List(ctx, "email")
	require.NoError(t, err)
	assert.Equal(t, "Boris", byEmail[0].Name)

	fallback, err := f.users.List(ctx, "password")
	require.NoError(t, err)
	assert.Equal(t, "Alla", fallback[0].Name)
}

func TestUserService_DeleteRefusesCardOwner(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	owner, err := f.users.CreateUser(ctx, CreateUserRequest{Name: "Owner", Email: "owner@example.com", Password: "password1"})
	require.NoError(t, err)
	lonely, err := f.users.CreateUser(ctx, CreateUserRequest{Name: "Lonely", Email: "lonely@example.com", Password: "password1"})
	require.NoError(t, err)

	cards := NewCardService(f.cards, f.users, nil, testLedger)
	card, err := cards.Create(ctx, CreateCardRequest{Number: "1111222233334444", OwnerID: owner.ID, ExpirationDate: time.Now().AddDate(2, 0, 0)})
	require.NoError(t, err)

	assert.ErrorIs(t, f.users.Delete(ctx, owner.ID), ErrUserHasCards)

	require.NoError(t, cards.Delete(ctx, card.ID))
	require.NoError(t, f.users.Delete(ctx, owner.ID))
	require.NoError(t, f.users.Delete(ctx, lonely.ID))

	assert.ErrorIs(t, f.users.Delete(ctx, lonely.ID), ErrUserNotFound)
	_, err = f.users.Get(ctx, owner.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_Update(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	first, err := f.users.CreateUser(ctx, CreateUserRequest{Name: "First", Email: "first@example.com", Password: "password1"})
	require.NoError(t, err)
	_, err = f.users.CreateUser(ctx, CreateUserRequest{Name: "Second", Email: "second@example.com", Password: "password1"})
	require.NoError(t, err)

	view, err := f.users.Update(ctx, first.ID, UpdateUserRequest{Name: " Renamed ", Email: "  Renamed@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", view.Name)
	assert.Equal(t, "renamed@example.com", view.Email)

	_, err = f.users.Update(ctx, first.ID, UpdateUserRequest{Name: "Renamed", Email: "second@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = f.users.Update(ctx, 9999, UpdateUserRequest{Name: "Ghost", Email: "ghost@example.com"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.users.Update(ctx, first.ID, UpdateUserRequest{Name: "", Email: "bad"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserService_ChangePassword(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, CreateUserRequest{Name: "Olga", Email: "olga@example.com", Password: "old-password"})
	require.NoError(t, err)
	self := Principal{ID: user.ID, Role: models.RoleUser}
	stranger := Principal{ID: user.ID + 1, Role: models.RoleUser}

	err = f.users.ChangePassword(ctx, stranger, user.ID, ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"})
	assert.ErrorIs(t, err, ErrForbidden)

	err = f.users.ChangePassword(ctx, self, user.ID, ChangePasswordRequest{OldPassword: "wrong-password", NewPassword: "new-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.users.ChangePassword(ctx, self, user.ID, ChangePasswordRequest{OldPassword: "old-password", NewPassword: "short"})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, f.users.ChangePassword(ctx, self, user.ID, ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"}))

	_, err = f.users.Authenticate(ctx, "olga@example.com", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.users.Authenticate(ctx, "olga@example.com", "new-password")
	assert.NoError(t, err)
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	token, view, err := f.auth.SignUp(ctx, CreateUserRequest{Name: "Petr", Email: "petr@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "petr@example.com", view.Email)
	assert.Equal(t, view.ID, token.UserID)

	principal, err := f.auth.ParseToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, Principal{ID: view.ID, Role: models.RoleUser}, principal)

	signedIn, err := f.auth.SignIn(ctx, "petr@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, signedIn.Token)

	_, err = f.auth.SignIn(ctx, "petr@example.com", "password2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	f := newUserFixture(t)
	user := &models.User{ID: 3, Email: "x@example.com", Role: models.RoleAdmin}

	other := NewAuthService(f.users, config.JWTConfig{SecretKey: "another-secret", ExpiresIn: 1})
	foreign, err := other.IssueToken(user)
	require.NoError(t, err)
	_, err = f.auth.ParseToken(foreign.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewAuthService(f.users, config.JWTConfig{SecretKey: "test-secret", ExpiresIn: 1})
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.IssueToken(user)
	require.NoError(t, err)
	_, err = f.auth.ParseToken(old.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.auth.ParseToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
