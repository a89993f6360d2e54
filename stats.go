package atlas

// Stats holds cumulative atlas counters.
type Stats struct {
	Hits              uint64
	Misses            uint64
	Evictions         uint64
	Growths           uint64
	Migrations        uint64
	MigrationsAborted uint64
	Moved             uint64
}

// Stats returns the cumulative counters.
func (s *Set[K, D]) Stats() Stats { return s.stats }

// HitRate returns the fraction of uploads that found their key resident.
func (st Stats) HitRate() float64 {
	total := st.Hits + st.Misses
	if total == 0 {
		return 0
	}
	return float64(st.Hits) / float64(total)
}
