package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUserAlreadyExists     = errors.New("email or username already registered")
	ErrSweetAlreadyExists    = errors.New("sweet with this name already exists")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")

	ErrUserNotFound     = errors.New("user not found")
	ErrSweetNotFound    = errors.New("sweet not found")
	ErrCategoryNotFound = errors.New("category not found")

	ErrForbidden          = errors.New("not enough permissions")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")

	ErrWeakPassword      = errors.New("password must be at least 8 characters long and contain uppercase, lowercase, number, and special character")
	ErrInsufficientStock = errors.New("insufficient quantity in stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNoFieldsToUpdate  = errors.New("no valid fields to update")
	ErrNoChanges         = errors.New("no changes made")
	ErrCategoryInUse     = errors.New("category is still referenced by sweets")
)

func invalidInput(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, detail)
}

// validateID rejects ids that could not have been issued by the store
func validateID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return invalidInput("invalid " + what + " ID")
	}
	return nil
}
