// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request decodes already-parsed request bodies into typed inputs.
*/
package requestutil

import (
	"github.com/mitchellh/mapstructure"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
)

/*
DecodeBody copies a parsed JSON object into the target structure.

Fields are matched by their `json` tag. Keys without a matching field are ignored.

Parameters:
  - body: map[string]any (The sanitized request body)
  - target: any (Pointer to the destination struct)

Returns:
  - error: VALIDATION_ERROR if a value has the wrong type, otherwise nil
*/
func DecodeBody(body map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  target,
	})
	if err != nil {
		return apperr.Internal(err)
	}

	if err := decoder.Decode(body); err != nil {
		return apperr.ValidationError("Invalid input data").WithCause(err)
	}
	return nil
}
