package service

import (
	"context"
	"testing"

	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_Signup(t *testing.T) {
	t.Run("invalid fields are reported together", func(t *testing.T) {
		repo := usersByName()
		repo.createFn = func(context.Context, *models.User) error {
			t.Fatal("nothing may be persisted")
			return nil
		}
		svc := NewUserService(repo)

		_, err := svc.Signup(context.Background(), SignupInput{Username: "x", Email: "nope", Password: "short"})
		assertFieldError(t, err, "username")
		assertFieldError(t, err, "email")
		assertFieldError(t, err, "password")
	})

	t.Run("password is stored hashed", func(t *testing.T) {
		var saved *models.User
		repo := usersByName()
		repo.createFn = func(_ context.Context, u *models.User) error {
			saved = u
			u.ID = 1
			return nil
		}
		svc := NewUserService(repo)

		user, err := svc.Signup(context.Background(), SignupInput{Username: "leo", Email: "leo@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.Equal(t, uint(1), user.ID)
		assert.NotEqual(t, "password123", saved.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.Password), []byte("password123")))
	})
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestUserService_Authenticate(t *testing.T) {
	leo := &models.User{ID: 1, Username: "leo", Password: hashed(t, "password123")}
	svc := NewUserService(usersByName(leo))
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "leo", "password123")
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)

	_, err = svc.Authenticate(ctx, "leo", "wrong")
	assertAppErrorCode(t, err, models.CodeUnauthorized)

	_, err = svc.Authenticate(ctx, "ghost", "password123")
	assertAppErrorCode(t, err, models.CodeUnauthorized)
}

func TestUserService_ChangePassword(t *testing.T) {
	leo := &models.User{ID: 1, Username: "leo", Password: hashed(t, "password123")}
	repo := usersByName(leo)
	var newHash string
	repo.updatePasswordFn = func(_ context.Context, id uint, hash string) error {
		assert.Equal(t, uint(1), id)
		newHash = hash
		return nil
	}
	svc := NewUserService(repo)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, ChangePasswordInput{Viewer: models.Authenticated(1), OldPassword: "wrong", NewPassword: "newpassword1"})
	assertFieldError(t, err, "old_password")

	err = svc.ChangePassword(ctx, ChangePasswordInput{Viewer: models.Authenticated(1), OldPassword: "password123", NewPassword: "short"})
	assertFieldError(t, err, "new_password")

	err = svc.ChangePassword(ctx, ChangePasswordInput{Viewer: models.Anonymous(), OldPassword: "password123", NewPassword: "newpassword1"})
	assertAppErrorCode(t, err, models.CodeUnauthorized)

	require.NoError(t, svc.ChangePassword(ctx, ChangePasswordInput{Viewer: models.Authenticated(1), OldPassword: "password123", NewPassword: "newpassword1"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("newpassword1")))
}

func TestUserService_DeleteUser(t *testing.T) {
	leo := &models.User{ID: 4, Username: "leo"}
	repo := usersByName(leo)
	var deleted uint
	repo.deleteFn = func(_ context.Context, id uint) error {
		deleted = id
		return nil
	}
	svc := NewUserService(repo)

	require.NoError(t, svc.DeleteUser(context.Background(), "leo"))
	assert.Equal(t, uint(4), deleted)
	assertAppErrorCode(t, svc.DeleteUser(context.Background(), "ghost"), models.CodeNotFound)
}
