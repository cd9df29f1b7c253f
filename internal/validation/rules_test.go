package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/community/internal/errors"
)

func TestWrapValidationError(t *testing.T) {
	assert.Nil(t, WrapValidationError(nil))

	err := WrapValidationError(apperrors.New("title: must not be blank"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "title: must not be blank")
}

func TestUUID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid uuid", "0191a6b2-0000-7000-8000-000000000001", false},
		{"empty string passes through", "", false},
		{"not a uuid", "not-a-uuid", true},
		{"truncated", "0191a6b2-0000-7000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := UUID.Validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNoWhitespace(t *testing.T) {
	assert.NoError(t, NoWhitespace.Validate("clean"))
	assert.Error(t, NoWhitespace.Validate(" padded"))
	assert.Error(t, NoWhitespace.Validate("padded "))
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, NotBlank.Validate("content"))
	assert.Error(t, NotBlank.Validate("   "))
}
