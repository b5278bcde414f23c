package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spigell/bursary-matcher/internal/bursary"
	"github.com/spigell/bursary-matcher/internal/validation"
)

// FileStore serves students and bursaries from a single JSON document:
//
//	{"students": [...], "bursaries": [...]}
//
// The document is read once when the store is created.
type FileStore struct {
	path     string
	order    []string
	profiles map[string]*bursary.StudentProfile
	listings []*bursary.Listing
}

type document struct {
	Students  []map[string]any `json:"students"`
	Bursaries []map[string]any `json:"bursaries"`
}

func NewFileStore(path string) (*FileStore, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	return parseDocument(path, body)
}

func parseDocument(path string, body []byte) (*FileStore, error) {
	if err := validation.ValidateDocument(body); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s := &FileStore{
		path:     path,
		profiles: make(map[string]*bursary.StudentProfile, len(doc.Students)),
		listings: make([]*bursary.Listing, 0, len(doc.Bursaries)),
	}

	for i, raw := range doc.Students {
		p, err := DecodeProfile(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: students[%d]: %w", path, i, err)
		}
		if _, dup := s.profiles[p.ID]; !dup {
			s.order = append(s.order, p.ID)
		}
		s.profiles[p.ID] = p
	}

	for i, raw := range doc.Bursaries {
		l, err := DecodeListing(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: bursaries[%d]: %w", path, i, err)
		}
		s.listings = append(s.listings, l)
	}

	return s, nil
}

func (s *FileStore) Profile(_ context.Context, id string) (*bursary.StudentProfile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("student %q: %w", id, ErrNotFound)
	}
	return p, nil
}

// Listings returns the bursaries in document order. The slice is a fresh copy.
func (s *FileStore) Listings(_ context.Context) (*bursary.Listings, error) {
	items := make([]*bursary.Listing, len(s.listings))
	copy(items, s.listings)
	return &bursary.Listings{Items: items}, nil
}

// Profiles returns every student in document order. A repeated id keeps its
// first position and its last contents.
func (s *FileStore) Profiles() []*bursary.StudentProfile {
	out := make([]*bursary.StudentProfile, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.profiles[id])
	}
	return out
}

func (s *FileStore) Close() error { return nil }
