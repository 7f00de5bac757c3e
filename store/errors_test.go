package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"title": "this field is required",
		"body":  "this field is required",
	}}
	assert.Equal(t, "validation failed: body: this field is required; title: this field is required", err.Error())
	assert.True(t, IsValidation(fmt.Errorf("create: %w", err)))
	assert.False(t, IsValidation(ErrNotFound))
}

func TestErrorClassification(t *testing.T) {
	assert.Equal(t, ErrNotFound, notFound(gorm.ErrRecordNotFound))
	other := errors.New("boom")
	assert.Equal(t, other, notFound(other))

	assert.True(t, isDuplicate(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isDuplicate(other))
	assert.True(t, retryable(fmt.Errorf("tx: %w", &mysql.MySQLError{Number: 1213})))
	assert.True(t, retryable(&mysql.MySQLError{Number: 1205}))
	assert.False(t, retryable(&mysql.MySQLError{Number: 1062}))

	assert.True(t, IsNotFound(gorm.ErrRecordNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("get: %w", ErrNotFound)))
	assert.False(t, IsNotFound(other))
}
