// Package selection reduces the thread corpus to a bounded, stratified sample.
//
// Non-empty threads are ranked by reply count (descending, ties by thread
// number ascending) and the ranking is cut into four rank ranges. Each range
// contributes at most its cap, taken in rank order. The concatenation of the
// tiers is the analysis priority order.
package selection

import (
	"errors"
	"fmt"
	"sort"

	"boardwatch/internal/threads"
)

// Tier names in output order.
const (
	TierTop        = "top"
	TierMediumHigh = "medium-high"
	TierMedium     = "medium"
	TierLow        = "low"
)

// Tier is the rank range [From, To) with a cap. To == 0 means unbounded.
type Tier struct {
	Name string
	From int
	To   int
	Cap  int
}

func (t Tier) contains(rank int) bool {
	return rank >= t.From && (t.To == 0 || rank < t.To)
}

// Buckets holds the four disjoint tiers.
type Buckets struct {
	Top        []threads.Thread
	MediumHigh []threads.Thread
	Medium     []threads.Thread
	Low        []threads.Thread
}

// Flatten concatenates the tiers in priority order.
func (b Buckets) Flatten() []threads.Thread {
	out := make([]threads.Thread, 0, b.Len())
	out = append(out, b.Top...)
	out = append(out, b.MediumHigh...)
	out = append(out, b.Medium...)
	return append(out, b.Low...)
}

// Len is the total number of selected threads.
func (b Buckets) Len() int {
	return len(b.Top) + len(b.MediumHigh) + len(b.Medium) + len(b.Low)
}

func (b *Buckets) tier(i int) *[]threads.Thread {
	switch i {
	case 0:
		return &b.Top
	case 1:
		return &b.MediumHigh
	case 2:
		return &b.Medium
	default:
		return &b.Low
	}
}

// Selector applies a fixed tier layout.
type Selector struct {
	tiers [4]Tier
}

// DefaultThresholds and DefaultCaps reproduce the stock layout:
// ranks [0,5), [5,10), [10,15), [15,∞) with five threads each.
var (
	DefaultThresholds = []int{5, 10, 15}
	DefaultCaps       = []int{5, 5, 5, 5}
)

// New builds a Selector from three strictly increasing rank thresholds and
// four positive caps.
func New(thresholds, caps []int) (*Selector, error) {
	if len(thresholds) != 3 {
		return nil, fmt.Errorf("selection: need 3 thresholds, got %d", len(thresholds))
	}
	if len(caps) != 4 {
		return nil, fmt.Errorf("selection: need 4 caps, got %d", len(caps))
	}
	prev := 0
	for i, threshold := range thresholds {
		if threshold <= prev {
			return nil, fmt.Errorf("selection: threshold %d (%d) must be greater than %d", i, threshold, prev)
		}
		prev = threshold
	}
	for i, limit := range caps {
		if limit <= 0 {
			return nil, fmt.Errorf("selection: cap %d must be positive", i)
		}
	}
	bounds := []int{0, thresholds[0], thresholds[1], thresholds[2], 0}
	names := []string{TierTop, TierMediumHigh, TierMedium, TierLow}
	s := &Selector{}
	for i := range s.tiers {
		s.tiers[i] = Tier{Name: names[i], From: bounds[i], To: bounds[i+1], Cap: caps[i]}
	}
	return s, nil
}

// Default returns a Selector with the stock layout.
func Default() *Selector {
	s, err := New(DefaultThresholds, DefaultCaps)
	if err != nil {
		panic(errors.New("selection: invalid default layout"))
	}
	return s
}

// Tiers returns the configured tier layout.
func (s *Selector) Tiers() []Tier {
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers[:])
	return out
}

// Capacity is the maximum number of threads a selection can hold.
func (s *Selector) Capacity() int {
	total := 0
	for _, tier := range s.tiers {
		total += tier.Cap
	}
	return total
}

// Select ranks the corpus and fills the tiers. The input slice is not modified.
func (s *Selector) Select(corpus []threads.Thread) Buckets {
	ranked := Rank(corpus)
	var out Buckets
	for rank, thread := range ranked {
		for i, tier := range s.tiers {
			if !tier.contains(rank) {
				continue
			}
			bucket := out.tier(i)
			if len(*bucket) < tier.Cap {
				*bucket = append(*bucket, thread)
			}
			break
		}
	}
	return out
}

// Rank returns the threads with at least one reply ordered by reply count
// descending, ties broken by thread number ascending. A thread number that
// appears twice keeps only its highest-ranked copy.
func Rank(corpus []threads.Thread) []threads.Thread {
	ranked := make([]threads.Thread, 0, len(corpus))
	for _, thread := range corpus {
		if thread.PostCount() > 0 {
			ranked = append(ranked, thread)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].PostCount() != ranked[j].PostCount() {
			return ranked[i].PostCount() > ranked[j].PostCount()
		}
		return ranked[i].No < ranked[j].No
	})
	seen := make(map[int64]struct{}, len(ranked))
	unique := ranked[:0]
	for _, thread := range ranked {
		if _, dup := seen[thread.No]; dup {
			continue
		}
		seen[thread.No] = struct{}{}
		unique = append(unique, thread)
	}
	return unique
}
