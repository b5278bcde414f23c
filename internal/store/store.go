package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/bursary-matcher/internal/bursary"
)

var ErrNotFound = errors.New("record not found")

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ProfileStore provides one student profile by identity.
type ProfileStore interface {
	Profile(ctx context.Context, id string) (*bursary.StudentProfile, error)
}

// ListingStore provides the bursary listings available for matching.
type ListingStore interface {
	Listings(ctx context.Context) (*bursary.Listings, error)
}

// Writer is implemented by stores that accept new records.
type Writer interface {
	SaveProfile(ctx context.Context, p *bursary.StudentProfile) error
	SaveListing(ctx context.Context, l *bursary.Listing) error
}

type Store interface {
	ProfileStore
	ListingStore
	Close() error
}

type Config struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// Open returns the store selected by cfg.Driver. SQL stores get their schema created.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverFile:
		if cfg.Path == "" {
			return nil, errors.New("store.path is required for the file driver")
		}
		return NewFileStore(cfg.Path)
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, errors.New("store.path is required for the sqlite driver")
		}
		s, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.New("store.dsn is required for the postgres driver")
		}
		s, err := OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
