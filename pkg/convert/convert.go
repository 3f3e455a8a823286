// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package convert parses loosely-typed request input such as query and path
// parameters, where a bad value should fall back rather than fail.
package convert

import (
	"math"
	"strconv"
	"strings"
)

// ToIntD parses str as a base-10 int. An empty or malformed str yields def.
func ToIntD(str string, def int) int {
	if str == "" {
		return def
	}

	value, err := strconv.Atoi(str)
	if err != nil {
		return def
	}
	return value
}

// ToFloatD parses str as a finite float64. An empty, malformed, NaN or infinite
// str yields def.
func ToFloatD(str string, def float64) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return def
	}
	return value
}
