package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeRequest builds a Request from a loosely typed map (config presets, HTTP bodies).
// Durations accept Go duration strings ("350ms") or integer nanoseconds.
func DecodeRequest(raw map[string]any) (Request, error) {
	var req Request
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return Request{}, fmt.Errorf("failed to build request decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}
