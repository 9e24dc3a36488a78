package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"feedlog/pkg/platform/sentinel"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil))

	plain := errors.New("syntax error")
	assert.Same(t, plain, MapError(plain))

	for _, code := range []string{"40001", "40P01", "23505"} {
		err := MapError(&pq.Error{Code: pq.ErrorCode(code), Message: "could not serialize access"})
		assert.ErrorIs(t, err, sentinel.ErrConflict, "sqlstate %s", code)
	}

	other := &pq.Error{Code: "42P01", Message: "relation does not exist"}
	assert.NotErrorIs(t, MapError(other), sentinel.ErrConflict)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "40001"}))
	assert.False(t, IsUniqueViolation(errors.New("23505")))
}
