package ratelimit

import "time"

// filterEvents drops timestamps in events that have aged out of every
// configured window, and reports how long the caller must wait before
// its next event would stay within all of them.
func filterEvents(now time.Time, rates map[time.Duration]int, events *ring[int64]) (remaining time.Duration) {
	indexFirstRelevant := events.Len()

	for window, limit := range rates {
		if limit <= 0 || window <= 0 {
			continue
		}

		boundary := now.Add(-window)

		index := events.Search(boundary.UnixNano() + 1)
		if index < indexFirstRelevant {
			indexFirstRelevant = index
		}

		if limit <= events.Len()-index {
			offset := time.Unix(0, events.Get(events.Len()-limit)).Sub(boundary)
			if offset > remaining {
				remaining = offset
			}
		}
	}

	events.RemoveBefore(indexFirstRelevant)
	return remaining
}
