package services

import (
	"errors"

	"msgboard/auth"
	"msgboard/contract"
	"msgboard/domain"
	apperrors "msgboard/errors"
)

type AuthService struct {
	users  contract.IUserStore
	tokens *auth.TokenManager
}

func NewAuthService(users contract.IUserStore, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register validates the credentials and creates the account.
func (s *AuthService) Register(req auth.RegisterRequest) (domain.User, error) {
	if err := auth.ValidateRegister(req); err != nil {
		return domain.User{}, errors.Join(apperrors.ErrValidation, err)
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, err
	}
	return s.users.Create(req.Username, hash)
}

// Login verifies the credentials and issues a signed token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(req auth.LoginRequest) (string, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return "", errors.Join(apperrors.ErrValidation, err)
	}
	user, err := s.users.GetByUsername(req.Username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.ErrBadCredentials
		}
		return "", err
	}
	ok, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.ErrBadCredentials
	}
	return s.tokens.Issue(user)
}
