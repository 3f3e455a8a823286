// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/trailhead/pkg/slug"
)

/*
TestFrom covers spacing, punctuation and accent folding.
*/
func TestFrom(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Forest Hiker", "the-forest-hiker"},
		{"  The   Sea Explorer  ", "the-sea-explorer"},
		{"The Northern Lights!", "the-northern-lights"},
		{"Café Crème Tour", "cafe-creme-tour"},
		{"Tour #3 -- 2026", "tour-3-2026"},
		{"Đà Lạt trek", "a-lat-trek"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.From(tt.in))
		})
	}
}
