package store

import (
	"context"

	"github.com/spigell/bursary-matcher/internal/bursary"
)

type Counts struct {
	Students  int
	Bursaries int
}

// ProfileLister is implemented by stores that can enumerate every profile.
type ProfileLister interface {
	Profiles() []*bursary.StudentProfile
}

// Source is a store that can be copied in full.
type Source interface {
	ProfileLister
	ListingStore
}

// Copy writes every profile and listing of src into dst.
func Copy(ctx context.Context, src Source, dst Writer) (Counts, error) {
	var n Counts

	for _, p := range src.Profiles() {
		if err := dst.SaveProfile(ctx, p); err != nil {
			return n, err
		}
		n.Students++
	}

	listings, err := src.Listings(ctx)
	if err != nil {
		return n, err
	}
	for _, l := range listings.Items {
		if err := dst.SaveListing(ctx, l); err != nil {
			return n, err
		}
		n.Bursaries++
	}

	return n, nil
}
