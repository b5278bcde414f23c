package store

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/bursary-matcher/internal/bursary"
)

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// DecodeProfile converts a loosely typed JSON object into a profile.
func DecodeProfile(raw any) (*bursary.StudentProfile, error) {
	var p bursary.StudentProfile
	if err := decode(raw, &p); err != nil {
		return nil, fmt.Errorf("decode student profile: %w", err)
	}
	return &p, nil
}

// DecodeListing converts a loosely typed JSON object into a listing.
func DecodeListing(raw any) (*bursary.Listing, error) {
	var l bursary.Listing
	if err := decode(raw, &l); err != nil {
		return nil, fmt.Errorf("decode bursary listing: %w", err)
	}
	return &l, nil
}

func decode(raw, result any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       stringToTimeHook,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func stringToTimeHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	if data == nil {
		return time.Time{}, nil
	}
	if from.Kind() != reflect.String {
		return data, nil
	}
	return parseTime(data.(string))
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
