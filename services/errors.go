package services

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrInvalidSession          = errors.New("invalid session")
	ErrSessionExpired          = errors.New("session expired")
	ErrEmailTaken              = errors.New("email already registered")
	ErrUsernameTaken           = errors.New("username already taken")
	ErrNoVerificationCode      = errors.New("no verification code issued")
	ErrInvalidVerificationCode = errors.New("invalid verification code")

	ErrActionNotInGame = errors.New("action does not belong to game")
	ErrPayoffNotFound  = errors.New("payoff not defined for action pair")
)
