// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/validate"
)

/*
TestValidator_Rules runs each rule against a passing and a failing value.
*/
func TestValidator_Rules(t *testing.T) {
	tests := []struct {
		name string
		rule func(v *validate.Validator)
		ok   bool
	}{
		{"required_ok", func(v *validate.Validator) { v.Required("name", "The Forest Hiker") }, true},
		{"required_blank", func(v *validate.Validator) { v.Required("name", "   ") }, false},
		{"min_len_ok", func(v *validate.Validator) { v.MinLen("name", "Élan", 4) }, true},
		{"min_len_short", func(v *validate.Validator) { v.MinLen("name", "Jo", 3) }, false},
		{"max_len_ok", func(v *validate.Validator) { v.MaxLen("name", "The Sea Explorer", 40) }, true},
		{"max_len_long", func(v *validate.Validator) { v.MaxLen("name", "The Sea Explorer", 5) }, false},
		{"max_bytes_ok", func(v *validate.Validator) { v.MaxBytes("password", strings.Repeat("a", 72), 72) }, true},
		{"max_bytes_multibyte", func(v *validate.Validator) { v.MaxBytes("password", strings.Repeat("é", 40), 72) }, false},
		{"matches_ok", func(v *validate.Validator) { v.Matches("passwordConfirm", "pass1234", "pass1234", "mismatch") }, true},
		{"matches_differs", func(v *validate.Validator) { v.Matches("passwordConfirm", "pass1234", "pass9999", "mismatch") }, false},
		{"range_ok", func(v *validate.Validator) { v.FloatRange("rating", 4.5, 1, 5) }, true},
		{"range_out", func(v *validate.Validator) { v.FloatRange("rating", 5.5, 1, 5) }, false},
		{"email_ok", func(v *validate.Validator) { v.Email("email", "laura@example.com") }, true},
		{"email_missing_domain", func(v *validate.Validator) { v.Email("email", "laura@") }, false},
		{"email_display_name", func(v *validate.Validator) { v.Email("email", "Laura <laura@example.com>") }, false},
		{"one_of_ok", func(v *validate.Validator) { v.OneOf("difficulty", "medium", "easy", "medium", "difficult") }, true},
		{"one_of_unknown", func(v *validate.Validator) { v.OneOf("difficulty", "extreme", "easy", "medium", "difficult") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			tt.rule(v)

			if tt.ok {
				assert.False(t, v.HasErrors())
				assert.NoError(t, v.Err())
				return
			}
			assert.True(t, v.HasErrors())
			assert.Error(t, v.Err())
		})
	}
}

/*
TestValidator_Err accumulates every failure into one message and the details.
*/
func TestValidator_Err(t *testing.T) {
	v := &validate.Validator{}
	err := v.
		Required("name", "").
		FloatRange("price", -1, 0, 10000).
		Custom("priceDiscount", true, "Discount price should be below regular price").
		Err()

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.CodeValidation, ae.Code)
	assert.Equal(t,
		"Invalid input data. A name is required. A price must be between 0 and 10000. Discount price should be below regular price.",
		ae.Message)
	require.Len(t, ae.Details, 3)
	assert.Equal(t, "priceDiscount", ae.Details[2].Field)
}
