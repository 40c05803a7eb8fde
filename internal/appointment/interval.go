package appointment

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Interval is half-open: [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Intersects reports a1 < b2 && b1 < a2, so back-to-back intervals do not intersect.
func (i Interval) Intersects(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Expand widens the interval by d on both sides.
func (i Interval) Expand(d time.Duration) Interval {
	return Interval{Start: i.Start.Add(-d), End: i.End.Add(d)}
}

type IndexedInterval struct {
	ID uuid.UUID
	Interval
}

// IntervalIndex keeps one therapist's intervals sorted by start. Lookups binary-search
// the window [q.Start-maxLen, q.End), so they cost O(log n + k) instead of a scan.
type IntervalIndex struct {
	items  []IndexedInterval
	maxLen time.Duration
}

func NewIntervalIndex(items []IndexedInterval) *IntervalIndex {
	x := &IntervalIndex{items: append([]IndexedInterval(nil), items...)}
	sort.Slice(x.items, func(i, j int) bool { return x.items[i].Start.Before(x.items[j].Start) })
	for _, it := range x.items {
		if l := it.End.Sub(it.Start); l > x.maxLen {
			x.maxLen = l
		}
	}
	return x
}

func (x *IntervalIndex) Len() int { return len(x.items) }

func (x *IntervalIndex) Insert(id uuid.UUID, iv Interval) {
	pos := sort.Search(len(x.items), func(i int) bool { return iv.Start.Before(x.items[i].Start) })
	x.items = append(x.items, IndexedInterval{})
	copy(x.items[pos+1:], x.items[pos:])
	x.items[pos] = IndexedInterval{ID: id, Interval: iv}
	if l := iv.End.Sub(iv.Start); l > x.maxLen {
		x.maxLen = l
	}
}

// Remove drops id. maxLen is not shrunk; it only widens the search window.
func (x *IntervalIndex) Remove(id uuid.UUID) bool {
	for i, it := range x.items {
		if it.ID == id {
			x.items = append(x.items[:i], x.items[i+1:]...)
			return true
		}
	}
	return false
}

// Overlapping returns intervals intersecting q in start order, skipping exclude.
func (x *IntervalIndex) Overlapping(q Interval, exclude uuid.UUID) []IndexedInterval {
	lowest := q.Start.Add(-x.maxLen)
	lo := sort.Search(len(x.items), func(i int) bool { return x.items[i].Start.After(lowest) })
	hi := sort.Search(len(x.items), func(i int) bool { return !x.items[i].Start.Before(q.End) })

	var out []IndexedInterval
	for i := lo; i < hi; i++ {
		it := x.items[i]
		if it.ID == exclude && exclude != uuid.Nil {
			continue
		}
		if it.Intersects(q) {
			out = append(out, it)
		}
	}
	return out
}
