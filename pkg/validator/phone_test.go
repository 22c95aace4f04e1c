package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	v := NewPhoneValidator()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"Plain E164", "+14155550100", "+14155550100", nil},
		{"Spaces And Dashes", "+1 415 555-0100", "+14155550100", nil},
		{"Parentheses", "+1 (415) 555.0100", "+14155550100", nil},
		{"UK Number", "+442071838750", "+442071838750", nil},
		{"Empty", "", "", ErrEmptyContact},
		{"Missing Plus", "14155550100", "", ErrInvalidFormat},
		{"Leading Zero Country", "+04155550100", "", ErrInvalidFormat},
		{"Too Short", "+1415", "", ErrInvalidFormat},
		{"Too Long", "+1415555010012345", "", ErrInvalidFormat},
		{"Letters", "+1415call-now", "", ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
