package auth

import (
	"fmt"

	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/request"

	"golang.org/x/crypto/bcrypt"
)

func UserRegister(req request.UserRegisterRequest) (*model.User, error) {
	existing, err := dao.GetUserByEmail(req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %v", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user already exists: %s", req.Email)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	user := &model.User{
		Email:    req.Email,
		Password: string(hashed),
		Avatar:   req.Avatar,
	}
	if err := dao.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %v", err)
	}
	return user, nil
}

func UserLogin(req request.UserLoginRequest) (*model.User, error) {
	user, err := dao.GetUserByEmail(req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %v", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", req.Email)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid password")
	}
	return user, nil
}
