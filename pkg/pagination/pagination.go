// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination turns the page and limit query parameters into an offset
// window and describes the window in list responses.
package pagination

import (
	"math"
	"net/url"

	"github.com/taibuivan/trailhead/pkg/convert"
)

const (
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 100
	// MaxLimit is the upper bound for items per page. Larger requests are clamped.
	MaxLimit = 1000
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
	// MaxOffset bounds the skipped rows so the offset fits a Postgres integer.
	MaxOffset = math.MaxInt32
)

// Query parameter names.
const (
	ParamPage  = "page"
	ParamLimit = "limit"
)

// Params holds the parsed page and limit from a request's query string.
type Params struct {
	Page  int
	Limit int
}

// Offset returns the number of records to skip: (page-1) * limit.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta is the "meta" object of a list response.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewMeta describes page of limit items out of total matches.
func NewMeta(page, limit, total int) Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Parse reads "page" and "limit" from query values.
//
// # Clamping
//
// Missing, malformed or non-positive values fall back to [DefaultPage] and
// [DefaultLimit]. A limit above [MaxLimit] is clamped to [MaxLimit], and a page
// whose offset would pass [MaxOffset] is clamped to the last reachable page.
func Parse(values url.Values) Params {
	page := convert.ToIntD(last(values, ParamPage), DefaultPage)
	limit := convert.ToIntD(last(values, ParamLimit), DefaultLimit)

	if page < 1 {
		page = DefaultPage
	}

	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if lastPage := MaxOffset/limit + 1; page > lastPage {
		page = lastPage
	}

	return Params{Page: page, Limit: limit}
}

// last returns the final value supplied for key, or "".
func last(values url.Values, key string) string {
	all := values[key]
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}
