package articles

import (
	"encoding/json"
	"sort"
	"time"
)

// RetentionPolicy bounds the shared example store.
type RetentionPolicy struct {
	MaxExamples int
	MaxAge      time.Duration
	MaxBytes    int
}

// DefaultRetention keeps 100 examples, 7 days, 1 MiB.
func DefaultRetention() RetentionPolicy {
	return RetentionPolicy{
		MaxExamples: 100,
		MaxAge:      7 * 24 * time.Hour,
		MaxBytes:    1 << 20,
	}
}

// Retain merges incoming ahead of existing and applies the policy in order:
// deduplicate by exact content (first occurrence wins), drop entries older
// than MaxAge, sort newest first, cap at MaxExamples, then drop the oldest
// entries while the indented JSON encoding exceeds MaxBytes.
func Retain(existing, incoming []Example, now time.Time, policy RetentionPolicy) []Example {
	merged := make([]Example, 0, len(incoming)+len(existing))
	merged = append(merged, incoming...)
	merged = append(merged, existing...)

	seen := make(map[string]struct{}, len(merged))
	cutoff := now.Add(-policy.MaxAge).UnixMilli()
	kept := merged[:0]
	for _, ex := range merged {
		if _, dup := seen[ex.Content]; dup {
			continue
		}
		seen[ex.Content] = struct{}{}
		if policy.MaxAge > 0 && ex.CapturedAt < cutoff {
			continue
		}
		kept = append(kept, ex)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CapturedAt > kept[j].CapturedAt
	})
	if policy.MaxExamples > 0 && len(kept) > policy.MaxExamples {
		kept = kept[:policy.MaxExamples]
	}

	if policy.MaxBytes > 0 {
		for len(kept) > 0 && encodedSize(kept) > policy.MaxBytes {
			kept = kept[:len(kept)-1]
		}
	}

	out := make([]Example, len(kept))
	copy(out, kept)
	return out
}

func encodedSize(examples []Example) int {
	data, err := json.MarshalIndent(examples, "", "  ")
	if err != nil {
		return 0
	}
	return len(data)
}
