// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pointer builds pointers to literal values, mostly for optional
// settings such as field bounds.
package pointer

// To returns a pointer to a copy of v.
func To[T any](v T) *T {
	return &v
}
