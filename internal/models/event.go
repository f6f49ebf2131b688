package models

import "sort"

// Event is a single calendar entry owned by one user. Dates and times are kept
// as flat strings (YYYY-MM-DD and zero-padded 24-hour HH:MM) so that ordering
// by (date, time) is plain lexicographic comparison.
type Event struct {
	ID    int    `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
	Date  string `db:"event_date" json:"date"`
	Time  string `db:"event_time" json:"time"`
	Type  string `db:"event_type" json:"type"`
}

// DefaultEventType is assigned when a create operation omits type.
const DefaultEventType = "meeting"

// SortEvents orders events by (date, time) ascending, in place.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Time < events[j].Time
	})
}

// MaxEventID returns the highest id present in the list, 0 when empty.
func MaxEventID(events []Event) int {
	max := 0
	for _, event := range events {
		if event.ID > max {
			max = event.ID
		}
	}
	return max
}
