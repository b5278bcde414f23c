package bursary

import (
	"strings"
	"time"
)

// NeedLevel is the coarse financial-need bucket used by both listings and students.
type NeedLevel string

const (
	NeedLow    NeedLevel = "low"
	NeedMedium NeedLevel = "medium"
	NeedHigh   NeedLevel = "high"
)

// ParseNeedLevel normalizes a stored need level. Unknown or empty values fall back to medium.
func ParseNeedLevel(s string) NeedLevel {
	switch NeedLevel(strings.ToLower(strings.TrimSpace(s))) {
	case NeedLow:
		return NeedLow
	case NeedHigh:
		return NeedHigh
	default:
		return NeedMedium
	}
}

// Listing is a bursary opportunity posted by an organization.
type Listing struct {
	ID                  string    `json:"id,omitempty" mapstructure:"id"`
	Title               string    `json:"title" mapstructure:"title"`
	Organization        string    `json:"organization,omitempty" mapstructure:"organization"`
	Description         string    `json:"description,omitempty" mapstructure:"description"`
	EligibilityCriteria string    `json:"eligibilityCriteria,omitempty" mapstructure:"eligibilityCriteria"`
	AwardAmount         float64   `json:"awardAmount,omitempty" mapstructure:"awardAmount"`
	FieldOfStudy        []string  `json:"fieldOfStudy,omitempty" mapstructure:"fieldOfStudy"`
	AcademicLevel       []string  `json:"academicLevel,omitempty" mapstructure:"academicLevel"`
	FinancialNeedLevel  NeedLevel `json:"financialNeedLevel,omitempty" mapstructure:"financialNeedLevel"`
	AITags              []string  `json:"aiTags,omitempty" mapstructure:"aiTags"`
	AICategorization    []string  `json:"aiCategorization,omitempty" mapstructure:"aiCategorization"`
	Deadline            time.Time `json:"deadline,omitempty" mapstructure:"deadline"`
	RequiredDocuments   []string  `json:"requiredDocuments,omitempty" mapstructure:"requiredDocuments"`
}

// NeedLevel returns the listing's financial need level, defaulting to medium.
func (l *Listing) NeedLevel() NeedLevel {
	return ParseNeedLevel(string(l.FinancialNeedLevel))
}

// HasDeadline reports whether the listing carries a deadline at all.
func (l *Listing) HasDeadline() bool {
	return !l.Deadline.IsZero()
}

// Listings is an ordered collection of bursary listings.
type Listings struct {
	Items []*Listing
}

func (l *Listings) Len() int {
	return len(l.Items)
}

func (l *Listings) FindByID(id string) *Listing {
	for _, listing := range l.Items {
		if listing.ID == id {
			return listing
		}
	}
	return nil
}

func (l *Listings) IDs() []string {
	ids := make([]string, 0, len(l.Items))
	for _, listing := range l.Items {
		ids = append(ids, listing.ID)
	}
	return ids
}

// Exclude removes listings with the given ids and returns the ids actually removed.
// Relative order of the remaining listings is preserved.
func (l *Listings) Exclude(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	var excluded []string
	kept := l.Items[:0]
	for _, listing := range l.Items {
		if _, ok := drop[listing.ID]; ok {
			excluded = append(excluded, listing.ID)
			continue
		}
		kept = append(kept, listing)
	}
	l.Items = kept

	return excluded
}

// ExcludeWhere removes listings matching the predicate and returns their ids.
func (l *Listings) ExcludeWhere(match func(*Listing) bool) []string {
	var excluded []string
	kept := l.Items[:0]
	for _, listing := range l.Items {
		if match(listing) {
			excluded = append(excluded, listing.ID)
			continue
		}
		kept = append(kept, listing)
	}
	l.Items = kept

	return excluded
}
