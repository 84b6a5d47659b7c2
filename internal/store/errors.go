package store

import "errors"

// Sentinel errors for the store's error taxonomy. Callers match them with
// errors.Is; operations may wrap them with extra detail.
var (
	ErrValidation         = errors.New("invalid input")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrDuplicateID        = errors.New("book id already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyInCart      = errors.New("book already in cart")
	ErrOutOfStock         = errors.New("book out of stock")
	ErrEmptyCart          = errors.New("cart is empty")
)
