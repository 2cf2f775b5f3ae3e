package handler

import "github.com/brightpath/accounts-api/internal/core/domain"

type signUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Username    string `json:"username,omitempty" validate:"omitempty,min=3,max=20,username"`
	DisplayName string `json:"display_name,omitempty" validate:"omitempty,min=3,max=50"`
	Password    string `json:"password" validate:"required,min=8,max=50,password"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expires_in"`
	User      *domain.User `json:"user"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

type usersResponse struct {
	Users []domain.User `json:"users"`
}
