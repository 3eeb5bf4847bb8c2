package photo

import (
	"math/rand"
	"slices"
	"testing"
)

func mk(id int64, likes int, date int64) Photo {
	return Photo{
		ID:    id,
		Date:  date,
		Likes: Likes{Count: likes},
		Sizes: []Size{{Width: 100, Height: 100, Type: "m", URL: "https://example.com/p.jpg"}},
	}
}

func TestSelect_OrderAndTieBreak(t *testing.T) {
	photos := []Photo{
		mk(1, 10, 300),
		mk(2, 50, 200),
		mk(3, 50, 100),
		mk(4, 7, 50),
		mk(5, 30, 10),
		mk(6, 99, 999),
		mk(7, 1, 1),
	}

	got := Select(photos, MaxSelected)

	wantIDs := []int64{6, 3, 2, 5, 1}
	if len(got) != len(wantIDs) {
		t.Fatalf("expected %d photos, got %d", len(wantIDs), len(got))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("position %d: expected photo %d, got %d", i, id, got[i].ID)
		}
	}
}

func TestSelect_ShortAndEmptyInput(t *testing.T) {
	got := Select([]Photo{mk(1, 3, 1), mk(2, 4, 1)}, MaxSelected)
	if len(got) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("expected photo 2 first, got %d", got[0].ID)
	}

	empty := Select(nil, MaxSelected)
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", empty)
	}
}

func TestSelect_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 40; n++ {
		var photos []Photo
		for i := 0; i < n; i++ {
			photos = append(photos, mk(int64(i), rng.Intn(6), int64(rng.Intn(4))))
		}
		input := slices.Clone(photos)

		got := Select(photos, MaxSelected)

		if len(got) != min(MaxSelected, n) {
			t.Fatalf("n=%d: expected length %d, got %d", n, min(MaxSelected, n), len(got))
		}
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			if prev.Likes.Count < cur.Likes.Count ||
				(prev.Likes.Count == cur.Likes.Count && prev.Date > cur.Date) {
				t.Fatalf("n=%d: output not sorted at %d", n, i)
			}
		}
		for _, p := range got {
			if !slices.ContainsFunc(input, func(q Photo) bool { return q.ID == p.ID }) {
				t.Fatalf("n=%d: photo %d not in input", n, p.ID)
			}
		}
		again := Select(photos, MaxSelected)
		if !slices.EqualFunc(got, again, func(a, b Photo) bool { return a.ID == b.ID }) {
			t.Fatalf("n=%d: selection is not deterministic", n)
		}
		if !slices.EqualFunc(photos, input, func(a, b Photo) bool { return a.ID == b.ID }) {
			t.Fatalf("n=%d: input was modified", n)
		}
	}
}

func TestLargest(t *testing.T) {
	p := Photo{Sizes: []Size{
		{Width: 75, Height: 56, Type: "s"},
		{Width: 1280, Height: 960, Type: "z"},
		{Width: 960, Height: 1280, Type: "y"},
		{Width: 604, Height: 453, Type: "x"},
	}}
	best, ok := p.Largest()
	if !ok {
		t.Fatal("expected a size")
	}
	if best.Type != "z" {
		t.Errorf("expected first of the largest variants (z), got %s", best.Type)
	}

	if _, ok := (Photo{}).Largest(); ok {
		t.Error("expected ok=false for photo without sizes")
	}
}

func TestFileNames(t *testing.T) {
	p := mk(1, 12, 1700000000)
	if got := p.FileName(); got != "12.jpg" {
		t.Errorf("expected 12.jpg, got %s", got)
	}
	if got := p.UniqueFileName(); got != "12_1700000000_1.jpg" {
		t.Errorf("expected 12_1700000000_1.jpg, got %s", got)
	}
	twin := mk(2, 12, 1700000000)
	if p.UniqueFileName() == twin.UniqueFileName() {
		t.Error("photos with equal likes and date must get distinct unique names")
	}
}
