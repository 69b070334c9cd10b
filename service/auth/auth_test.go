package auth

import (
	"testing"

	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}))
	dao.DB = db
}

func TestUserRegisterAndLogin(t *testing.T) {
	setupTestDB(t)

	user, err := UserRegister(request.UserRegisterRequest{
		Email:    "alice@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "secret-password", user.Password)

	logged, err := UserLogin(request.UserLoginRequest{
		Email:    "alice@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
}

func TestUserRegisterDuplicate(t *testing.T) {
	setupTestDB(t)

	_, err := UserRegister(request.UserRegisterRequest{
		Email:    "alice@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)

	_, err = UserRegister(request.UserRegisterRequest{
		Email:    "alice@example.com",
		Password: "another-password",
	})
	assert.Error(t, err)
}

func TestUserLoginWrongPassword(t *testing.T) {
	setupTestDB(t)

	_, err := UserRegister(request.UserRegisterRequest{
		Email:    "alice@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)

	_, err = UserLogin(request.UserLoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	assert.Error(t, err)

	_, err = UserLogin(request.UserLoginRequest{
		Email:    "nobody@example.com",
		Password: "secret-password",
	})
	assert.Error(t, err)
}
