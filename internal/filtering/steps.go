package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/bursary-matcher/internal/bursary"
	"github.com/spigell/bursary-matcher/internal/narrative"
)

type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

type openDeadlineFilter struct {
	toggle
	openOnly bool
}

// NewOpenDeadline creates a filter that removes listings whose deadline has passed.
// Listings without a deadline are kept.
func NewOpenDeadline() Filter {
	return &openDeadlineFilter{}
}

func (f *openDeadlineFilter) Name() string { return "open_deadline" }

func (f *openDeadlineFilter) Validate(cfg *Config) error {
	f.openOnly = cfg != nil && cfg.OpenOnly
	return nil
}

func (f *openDeadlineFilter) Apply(_ context.Context, deps Deps, l *bursary.Listings) (*bursary.Listings, Step, error) {
	initial := l.Len()
	if !f.openOnly {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	now := deps.now()
	excluded := l.ExcludeWhere(func(listing *bursary.Listing) bool {
		return listing.HasDeadline() && narrative.DaysUntil(listing.Deadline, now) < 0
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding bursaries with passed deadlines",
			zap.Strings("excluded_bursaries", excluded),
			zap.Int("bursaries_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *openDeadlineFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"open_only": strconv.FormatBool(f.openOnly)},
	}
}

type excludeFileFilter struct {
	toggle
	path string
}

// NewExcludeFile creates a filter that removes listings contained in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, l *bursary.Listings) (*bursary.Listings, Step, error) {
	initial := l.Len()
	if f.path == "" {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	excluded, err := bursary.GetExcludedFromFile(f.path)
	if err != nil {
		return l, Step{}, fmt.Errorf("getting excluded bursaries from file: %w", err)
	}

	removed := l.Exclude(excluded.IDs())
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding bursaries based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_bursaries", removed),
			zap.Int("bursaries_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(removed), Left: l.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type organizationsFilter struct {
	toggle
	organizations []string
}

// NewOrganizations creates a filter that removes listings posted by the configured organizations.
func NewOrganizations() Filter {
	return &organizationsFilter{}
}

func (f *organizationsFilter) Name() string { return "organizations" }

func (f *organizationsFilter) Validate(cfg *Config) error {
	f.organizations = nil
	if cfg != nil {
		for _, org := range cfg.Organizations {
			if org = strings.TrimSpace(org); org != "" {
				f.organizations = append(f.organizations, org)
			}
		}
	}
	return nil
}

func (f *organizationsFilter) Apply(_ context.Context, deps Deps, l *bursary.Listings) (*bursary.Listings, Step, error) {
	initial := l.Len()
	if len(f.organizations) == 0 {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	excluded := l.ExcludeWhere(func(listing *bursary.Listing) bool {
		for _, org := range f.organizations {
			if strings.EqualFold(strings.TrimSpace(listing.Organization), org) {
				return true
			}
		}
		return false
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding bursaries by organization",
			zap.Strings("excluded_organizations", f.organizations),
			zap.Strings("excluded_bursaries", excluded),
			zap.Int("bursaries_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *organizationsFilter) Status() Status {
	details := map[string]string{}
	if len(f.organizations) > 0 {
		details["organizations"] = strings.Join(f.organizations, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
