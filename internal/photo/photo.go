// Package photo holds the photo model shared by the VK source client and the
// backup pipeline, plus the ranking used to choose which photos to back up.
package photo

import (
	"errors"
	"fmt"
	"slices"
)

// MaxSelected is the number of photos a backup run transfers.
const MaxSelected = 5

// ErrNoSizes is returned for a photo the source listed without any size variants.
var ErrNoSizes = errors.New("photo has no size variants")

// Likes mirrors the VK "likes" object.
type Likes struct {
	Count int `json:"count"`
}

// Size is one resolution of a photo as offered by the source.
type Size struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"` // size class label: s, m, x, y, z, w, ...
	URL    string `json:"url"`
}

// Area returns width × height.
func (s Size) Area() int {
	return s.Width * s.Height
}

// Photo is a single photo from a profile listing.
type Photo struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Date    int64  `json:"date"` // unix seconds
	Likes   Likes  `json:"likes"`
	Sizes   []Size `json:"sizes"`
}

// Largest returns the size variant with the greatest area. The first variant
// wins on equal area. ok is false when the photo has no variants.
func (p Photo) Largest() (size Size, ok bool) {
	if len(p.Sizes) == 0 {
		return Size{}, false
	}
	best := p.Sizes[0]
	for _, s := range p.Sizes[1:] {
		if s.Area() > best.Area() {
			best = s
		}
	}
	return best, true
}

// FileName returns the staged and uploaded file name: "<likes>.jpg".
// Photos with equal like counts share a name.
func (p Photo) FileName() string {
	return fmt.Sprintf("%d.jpg", p.Likes.Count)
}

// UniqueFileName returns "<likes>_<date>_<id>.jpg", used when a run opts out
// of like-count names colliding. Photo IDs are unique within an album.
func (p Photo) UniqueFileName() string {
	return fmt.Sprintf("%d_%d_%d.jpg", p.Likes.Count, p.Date, p.ID)
}

// Select ranks photos by like count (descending), then by date (oldest
// first), and returns at most max of them. The input slice is not modified.
func Select(photos []Photo, max int) []Photo {
	ranked := slices.Clone(photos)
	if ranked == nil {
		ranked = []Photo{}
	}
	slices.SortStableFunc(ranked, compare)
	if max >= 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}

func compare(a, b Photo) int {
	if a.Likes.Count != b.Likes.Count {
		if a.Likes.Count > b.Likes.Count {
			return -1
		}
		return 1
	}
	switch {
	case a.Date < b.Date:
		return -1
	case a.Date > b.Date:
		return 1
	}
	return 0
}
