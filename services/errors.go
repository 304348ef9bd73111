package services

import (
	"strings"

	"github.com/juju/errors"
	"gorm.io/gorm"
)

// isDuplicateKey reports a storage uniqueness violation. gorm translates it
// when the dialector supports it; the message checks cover drivers that don't.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound error and traces anything else.
func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFoundf(format, args...)
	}
	return errors.Trace(err)
}

// exists reports whether any row of model matches the condition.
func exists(tx *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var n int64
	if err := tx.Model(model).Where(query, args...).Limit(1).Count(&n).Error; err != nil {
		return false, errors.Trace(err)
	}
	return n > 0, nil
}
