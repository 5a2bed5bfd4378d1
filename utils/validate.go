package utils

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate returns the shared validator instance. Enum validations are
// registered by the models package at init time so each closed enumeration is
// declared exactly once and reused by every consumer.
func Validate() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}
