package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	notFound := ToDomainError(fmt.Errorf("load: %w", pgx.ErrNoRows))
	assert.Equal(t, CodeNotFound, notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	dup := ToDomainError(&pgconn.PgError{Code: "23505"})
	assert.Equal(t, CodeConflict, dup.Code)
	assert.Equal(t, http.StatusConflict, dup.HTTPStatus)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, "internal server error", internal.Message)

	original := NewRejection(CodeImageTooLarge, "too big", nil)
	assert.Same(t, original, ToDomainError(fmt.Errorf("upload: %w", original)))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(pgx.ErrNoRows))
	assert.True(t, IsNotFound(NewNotFound("request", nil)))
	assert.False(t, IsNotFound(NewConflict("x", nil)))

	assert.True(t, IsConflict(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsConflict(NewConflict("moved", nil)))
	assert.False(t, IsConflict(errors.New("other")))

	assert.True(t, errors.Is(NewForbidden("no"), &DomainError{Code: CodeForbidden}))
	assert.True(t, HasCode(fmt.Errorf("wrapped: %w", NewRejection(CodeEmptyMessage, "empty", nil)), CodeEmptyMessage))
}

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(sample{Email: "a@b.test", Name: "A"}))

	err := Validate(sample{Email: "nope"})
	require.Error(t, err)
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, CodeValidation, domainErr.Code)
	assert.Equal(t, "email", domainErr.Details["email"])
	assert.Equal(t, "required", domainErr.Details["name"])
}
