package models

import "errors"

// Domain errors. Each transfer check failure is a distinct sentinel so
// callers can map them to distinct responses.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	ErrCardNotFound = errors.New("card not found")
	ErrNoAccess     = errors.New("no access to this resource")
	ErrCardExpired  = errors.New("card has expired")

	ErrInvalidAmount        = errors.New("transfer amount must be positive")
	ErrSameCardTransfer     = errors.New("source and destination cards must differ")
	ErrInsufficientFunds    = errors.New("insufficient funds on source card")
	ErrFromCardBlocked      = errors.New("source card is blocked")
	ErrToCardBlocked        = errors.New("destination card is blocked")
	ErrFromCardExpired      = errors.New("source card has expired")
	ErrToCardExpired        = errors.New("destination card has expired")
	ErrOnlyOwnCardsTransfer = errors.New("transfers are allowed only between own cards")

	ErrBlockRequestNotFound  = errors.New("block request not found")
	ErrBlockRequestExists    = errors.New("a pending block request already exists for this card")
	ErrBlockRequestProcessed = errors.New("block request has already been processed")

	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUserNotVerified     = errors.New("user email is not verified")
	ErrAlreadyVerified     = errors.New("user email is already verified")
	ErrBadVerificationCode = errors.New("verification code is not correct")
)
