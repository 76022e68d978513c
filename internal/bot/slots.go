package bot

import (
	"fmt"
	"time"
)

// Slot is one scheduled reindex-and-notify time of day. The first slot of
// the day is the digest slot: it always sends. Every other slot is an alert
// slot: it sends only when new listings exist since the last successful
// notification.
type Slot struct {
	Hour   int
	Minute int
	Digest bool
}

// Clock returns the slot time formatted as HH:MM.
func (s Slot) Clock() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// ComputeSlots derives the daily schedule: 24/intervalHours evenly spaced
// slots starting at firstSlot (an "HH:MM" time of day), wrapping past
// midnight. intervalHours must divide 24.
func ComputeSlots(intervalHours int, firstSlot string) ([]Slot, error) {
	if intervalHours <= 0 || 24%intervalHours != 0 {
		return nil, fmt.Errorf("interval %dh does not divide the day evenly", intervalHours)
	}

	first, err := time.Parse("15:04", firstSlot)
	if err != nil {
		return nil, fmt.Errorf("parse first slot %q: %w", firstSlot, err)
	}

	n := 24 / intervalHours
	slots := make([]Slot, n)
	for i := 0; i < n; i++ {
		h := (first.Hour() + i*intervalHours) % 24
		slots[i] = Slot{Hour: h, Minute: first.Minute(), Digest: i == 0}
	}
	return slots, nil
}

// notifyTime offsets a slot by the configured reindex-to-notify delay,
// wrapping past midnight.
func notifyTime(s Slot, delay time.Duration) (hour, minute int) {
	total := (time.Duration(s.Hour)*time.Hour + time.Duration(s.Minute)*time.Minute + delay) %
		(24 * time.Hour)
	return int(total / time.Hour), int(total % time.Hour / time.Minute)
}
