package appointment

// Stats holds per-status counts. Every status is present, zero-filled, and the counts
// always sum to Total.
type Stats struct {
	Counts map[Status]int `json:"counts"`
	Total  int            `json:"total"`
}

func newStats(raw map[Status]int) Stats {
	s := Stats{Counts: make(map[Status]int, len(AllStatuses))}
	for _, st := range AllStatuses {
		n := raw[st]
		s.Counts[st] = n
		s.Total += n
	}
	return s
}
