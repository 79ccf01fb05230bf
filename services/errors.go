package services

import (
	"errors"

	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

// wrapDBError passes typed errors through and turns anything else into an
// internal error.
func wrapDBError(message string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := utils.AsAppError(err); ok {
		return err
	}
	return utils.NewInternalError(message, err)
}

// lookupError maps gorm.ErrRecordNotFound onto a NotFound error with code.
func lookupError(code, message string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewNotFoundError(code, message)
	}
	return utils.NewInternalError(message, err)
}
