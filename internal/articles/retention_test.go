package articles

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"
)

func TestRetainBoundsStore(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	// 120 fresh examples an hour apart, then 10 older than the 7 day window.
	var existing []Example
	for i := 0; i < 130; i++ {
		age := time.Duration(i) * time.Hour
		if i >= 120 {
			age = 8*24*time.Hour + time.Duration(i)*time.Minute
		}
		existing = append(existing, Example{
			ThreadID:   int64(i % 4),
			PostID:     int64(i),
			Content:    fmt.Sprintf("excerpt %d", i),
			CapturedAt: now.Add(-age).UnixMilli(),
		})
	}
	rng := rand.New(rand.NewSource(7))
	rng.Shuffle(len(existing), func(i, j int) { existing[i], existing[j] = existing[j], existing[i] })

	got := Retain(existing, nil, now, DefaultRetention())
	if len(got) != 100 {
		t.Fatalf("expected 100 examples, got %d", len(got))
	}
	for i, ex := range got {
		if ex.PostID != int64(i) {
			t.Fatalf("position %d: expected post %d, got %d", i, i, ex.PostID)
		}
	}
}

func TestRetainDefaultByteCap(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	var examples []Example
	for i := 0; i < 100; i++ {
		examples = append(examples, Example{
			PostID:     int64(i),
			Content:    fmt.Sprintf("%03d %s", i, strings.Repeat("y", 20_000)),
			CapturedAt: now.Add(-time.Duration(i) * time.Minute).UnixMilli(),
		})
	}
	policy := DefaultRetention()
	got := Retain(examples, nil, now, policy)
	if len(got) == 0 || len(got) == len(examples) {
		t.Fatalf("expected the 1 MiB cap to trim, kept %d", len(got))
	}
	if size := encodedSize(got); size > policy.MaxBytes {
		t.Fatalf("encoded size %d exceeds %d", size, policy.MaxBytes)
	}
	if size := encodedSize(examples[:len(got)+1]); size <= policy.MaxBytes {
		t.Fatalf("cap trimmed more than needed: %d examples would still fit in %d bytes", len(got)+1, size)
	}
	for i, ex := range got {
		if ex.PostID != int64(i) {
			t.Fatalf("expected newest examples kept, position %d has post %d", i, ex.PostID)
		}
	}
}

func TestRetainIncomingWinsDuplicates(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	existing := []Example{{PostID: 1, Content: "same", CapturedAt: now.Add(-time.Hour).UnixMilli()}}
	incoming := []Example{{PostID: 2, Content: "same", CapturedAt: now.UnixMilli()}}
	got := Retain(existing, incoming, now, DefaultRetention())
	if len(got) != 1 || got[0].PostID != 2 {
		t.Fatalf("expected incoming example to win, got %+v", got)
	}
	if len(existing) != 1 || existing[0].PostID != 1 {
		t.Fatal("input slice mutated")
	}
}

func TestRetainByteCapDropsOldest(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	var examples []Example
	for i := 0; i < 10; i++ {
		examples = append(examples, Example{
			PostID:     int64(i),
			Content:    fmt.Sprintf("%d %s", i, strings.Repeat("x", 200)),
			CapturedAt: now.Add(-time.Duration(i) * time.Minute).UnixMilli(),
		})
	}
	policy := RetentionPolicy{MaxExamples: 100, MaxAge: time.Hour, MaxBytes: 1200}
	got := Retain(examples, nil, now, policy)
	if len(got) == 0 || len(got) >= 10 {
		t.Fatalf("expected size cap to trim some examples, kept %d", len(got))
	}
	if encodedSize(got) > policy.MaxBytes {
		t.Fatalf("encoded size %d exceeds cap", encodedSize(got))
	}
	for i, ex := range got {
		if ex.PostID != int64(i) {
			t.Fatalf("expected newest examples kept, position %d has post %d", i, ex.PostID)
		}
	}
}
