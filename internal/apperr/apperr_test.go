package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation(`"title" is required`), KindValidation},
		{"wrapped forbidden", fmt.Errorf("update: %w", Forbidden("nope")), KindAuthorization},
		{"not found", NotFound("card not found"), KindNotFound},
		{"conflict", Conflict("bizNumber taken", ErrDuplicateKey), KindConflict},
		{"plain error", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_UnwrapAndMessage(t *testing.T) {
	err := Conflict("bizNumber taken", ErrDuplicateKey)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, "[conflict] bizNumber taken: duplicate key", err.Error())

	v := Validation(`"title" is required`, `"email" must be a valid email`)
	assert.Equal(t, `[validation] validation failed: "title" is required; "email" must be a valid email`, v.Error())
}

func TestIs(t *testing.T) {
	assert.False(t, Is(nil, KindInternal))
	assert.True(t, Is(Unauthenticated("login required"), KindAuthentication))
	assert.False(t, Is(Unauthenticated("login required"), KindAuthorization))
}
