package bursary

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

type ExcludedListings struct {
	Items []*ExcludedListing
}

type ExcludedListing struct {
	ID         string
	Title      string
	Reason     string
	ExcludedAt time.Time
}

// GetExcludedFromFile reads an exclude file. A missing or empty file yields an empty set.
func GetExcludedFromFile(path string) (*ExcludedListings, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ExcludedListings{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedListings{}, nil
	}

	var excluded ExcludedListings
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// ToExcluded converts listings into exclude entries stamped with the given reason.
func (l *Listings) ToExcluded(reason string, now time.Time) *ExcludedListings {
	excluded := &ExcludedListings{}
	for _, listing := range l.Items {
		excluded.Items = append(excluded.Items, &ExcludedListing{
			ID:         listing.ID,
			Title:      listing.Title,
			Reason:     reason,
			ExcludedAt: now.UTC(),
		})
	}
	return excluded
}

// Append adds entries whose id is not already present.
func (e *ExcludedListings) Append(s *ExcludedListings) {
	seen := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		seen[item.ID] = struct{}{}
	}
	for _, item := range s.Items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		e.Items = append(e.Items, item)
	}
}

func (e *ExcludedListings) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (e *ExcludedListings) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
