// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tour

import (
	"context"

	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/validate"
	"github.com/taibuivan/trailhead/pkg/slice"
	"github.com/taibuivan/trailhead/pkg/slug"
	"github.com/taibuivan/trailhead/pkg/uuid"
)

const (
	msgPriceNotPositive = "A tour must have a price above 0"
	msgDiscountTooHigh  = "Discount price should be below regular price"
	msgInvalidGuide     = "Every guide must be a valid user id"
	msgHalfLocation     = "A start location needs both latitude and longitude"
)

/*
Prepare derives the slug and checks cross-field rules before a write.

On update, document holds only the changes and existing the stored tour, so the
discount is compared against whichever price will be in effect.
*/
func Prepare(_ context.Context, document, existing docstore.Document) error {
	if name, ok := document[FieldName].(string); ok {
		document[FieldSlug] = slug.From(name)
	}

	effective := document
	if existing != nil {
		effective = existing.Merge(document)
	}

	validator := &validate.Validator{}

	price, hasPrice := effective[FieldPrice].(float64)
	if _, changed := document[FieldPrice]; changed || existing == nil {
		validator.Custom(FieldPrice, hasPrice && price <= 0, msgPriceNotPositive)
	}

	if discount, ok := effective[FieldPriceDiscount].(float64); ok && hasPrice {
		_, discountChanged := document[FieldPriceDiscount]
		_, priceChanged := document[FieldPrice]
		if discountChanged || priceChanged {
			validator.Custom(FieldPriceDiscount, discount >= price, msgDiscountTooHigh)
		}
	}

	_, latitudeChanged := document[FieldStartLatitude]
	_, longitudeChanged := document[FieldStartLongitude]
	if latitudeChanged || longitudeChanged {
		hasLatitude := effective[FieldStartLatitude] != nil
		hasLongitude := effective[FieldStartLongitude] != nil
		validator.Custom(FieldStartLatitude, hasLatitude != hasLongitude, msgHalfLocation)
	}

	if guides, ok := document[FieldGuides].([]string); ok {
		invalid := slice.Filter(guides, func(guide string) bool { return !uuid.Valid(guide) })
		validator.Custom(FieldGuides, len(invalid) > 0, msgInvalidGuide)
	}

	return validator.Err()
}
