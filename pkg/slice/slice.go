// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slice holds generic helpers the standard [slices] package lacks.
package slice

// Filter returns the elements of input for which keep reports true, in order.
// A nil input yields nil.
func Filter[T any](input []T, keep func(T) bool) []T {
	if input == nil {
		return nil
	}

	var kept []T
	for _, element := range input {
		if keep(element) {
			kept = append(kept, element)
		}
	}
	return kept
}
