// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate collects field-level failures and reports them as one
// VALIDATION_ERROR. Services use it for business rules and the document store
// uses it for payload checks.
package validate

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
)

// Validator accumulates failures through chained rule calls. The zero value is
// ready to use. It is not safe for concurrent use.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	return v.Custom(field, strings.TrimSpace(value) == "", fmt.Sprintf("A %s is required", field))
}

// MinLen fails if value has fewer than min characters.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	return v.Custom(field, utf8.RuneCountInString(value) < min,
		fmt.Sprintf("A %s must have at least %d characters", field, min))
}

// MaxLen fails if value has more than max characters.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	return v.Custom(field, utf8.RuneCountInString(value) > max,
		fmt.Sprintf("A %s must have at most %d characters", field, max))
}

// MaxBytes fails if value is longer than max bytes once encoded as UTF-8.
func (v *Validator) MaxBytes(field, value string, max int) *Validator {
	return v.Custom(field, len(value) > max,
		fmt.Sprintf("A %s must be at most %d bytes long", field, max))
}

// Matches fails with message if value differs from other.
func (v *Validator) Matches(field, value, other, message string) *Validator {
	return v.Custom(field, value != other, message)
}

// FloatRange fails if value lies outside [min, max].
func (v *Validator) FloatRange(field string, value, min, max float64) *Validator {
	return v.Custom(field, value < min || value > max,
		fmt.Sprintf("A %s must be between %g and %g", field, min, max))
}

// Email fails unless value is a bare address such as "jo@example.com".
// Display-name forms like "Jo <jo@example.com>" are rejected.
func (v *Validator) Email(field, value string) *Validator {
	address, err := mail.ParseAddress(value)
	return v.Custom(field, err != nil || address.Address != value, "Please provide a valid email")
}

// OneOf fails if value is not one of allowed.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, candidate := range allowed {
		if value == candidate {
			return v
		}
	}
	return v.Custom(field, true, fmt.Sprintf("A %s is either: %s", field, strings.Join(allowed, ", ")))
}

// Custom records message for field when failed is true.
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
	}
	return v
}

// HasErrors reports whether any rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// Err returns nil when every rule passed. Otherwise it returns a ValidationError
// whose message lists each failure, e.g. "Invalid input data. A name is required.".
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}

	messages := make([]string, len(v.errs))
	for i, failure := range v.errs {
		messages[i] = failure.Message
	}
	return apperr.ValidationError("Invalid input data. "+strings.Join(messages, ". ")+".", v.errs...)
}
