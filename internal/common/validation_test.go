package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	t.Run("Success case - no violations", func(t *testing.T) {
		v := NewValidator().
			Field("name", "kk.pdf", Required).
			Field("size", int64(10), MaxBytes(1024))
		assert.False(t, v.HasErrors())
		assert.NoError(t, v.Error())
	})

	t.Run("Error case - every violation is collected", func(t *testing.T) {
		v := NewValidator().
			Field("files", nil, Required).
			Field("big.pdf", int64(60*1024*1024), MaxBytes(50*1024*1024)).
			Field("a.png", "image/png", Predicate(func(value interface{}) bool { return value == "application/pdf" }, "only PDF or ZIP files are allowed"))

		err := v.Error()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)

		var verrs ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Equal(t, []string{
			"files: is required",
			"big.pdf: file size exceeds 50MB",
			"a.png: only PDF or ZIP files are allowed",
		}, verrs.Messages())
		assert.Equal(t, "files: is required; big.pdf: file size exceeds 50MB; a.png: only PDF or ZIP files are allowed", err.Error())
	})

	t.Run("Error case - blank string is missing", func(t *testing.T) {
		assert.NotNil(t, Required("name", "   "))
	})
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ValidationErrors{{Field: "f", Message: "m"}}, http.StatusBadRequest},
		{fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{NewAppError("CONFLICT", "running", ErrConflict), http.StatusConflict},
		{WrapError(ErrDatabase, "insert"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err))
	}
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))
	err := WrapError(ErrNotFound, "run")
	assert.EqualError(t, err, "run: resource not found")
	assert.ErrorIs(t, err, ErrNotFound)
}
