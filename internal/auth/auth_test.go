package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/road-monitor/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewService(t *testing.T) {
	service, err := NewService()
	assert.NoError(t, err)
	assert.NotNil(t, service)
	assert.NotEmpty(t, service.jwtSecret)
	assert.Equal(t, 24*time.Hour, service.tokenExp)
}

func TestService_HashAndCheckPassword(t *testing.T) {
	service, _ := NewService()

	password := "testpassword123"
	hash, err := service.HashPassword(password)
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	assert.True(t, service.CheckPassword(password, hash))
	assert.False(t, service.CheckPassword("wrongpassword", hash))
}

func TestService_GenerateAndValidateToken(t *testing.T) {
	service, _ := NewService()

	user := &models.User{
		ID:       primitive.NewObjectID(),
		Username: "testuser",
	}

	token, err := service.GenerateToken(user)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "testuser", claims.Username)
}

func TestService_ValidateToken_BearerPrefix(t *testing.T) {
	service, _ := NewService()
	user := &models.User{ID: primitive.NewObjectID(), Username: "testuser"}
	token, _ := service.GenerateToken(user)

	claims, err := service.ValidateToken("Bearer " + token)
	assert.NoError(t, err)
	assert.Equal(t, "testuser", claims.Username)
}

func TestService_ValidateToken_Invalid(t *testing.T) {
	service, _ := NewService()

	_, err := service.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	service, _ := NewService()
	service.tokenExp = -time.Hour

	user := &models.User{ID: primitive.NewObjectID(), Username: "testuser"}
	token, _ := service.GenerateToken(user)

	_, err := service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestService_Validators(t *testing.T) {
	service, _ := NewService()

	assert.NoError(t, service.ValidatePassword("longenough"))
	assert.Error(t, service.ValidatePassword("short"))

	assert.NoError(t, service.ValidateEmail("user@example.com"))
	assert.Error(t, service.ValidateEmail("not-an-email"))

	assert.NoError(t, service.ValidateUsername("agent12"))
	assert.Error(t, service.ValidateUsername("ab"))
}
