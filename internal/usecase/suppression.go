package usecase

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// suppressionWindow discards reconciliation results for a fixed delay after a
// local toggle. Opening it again moves the expiry; it never stacks.
type suppressionWindow struct {
	delay     time.Duration
	active    bool
	expiresAt time.Time
}

func (w *suppressionWindow) open(now time.Time) time.Time {
	w.active = true
	w.expiresAt = now.Add(w.delay)
	return w.expiresAt
}

// activeAt reports whether the window still suppresses at now and closes it
// once the expiry has passed.
func (w *suppressionWindow) activeAt(now time.Time) bool {
	if !w.active {
		return false
	}
	if !now.Before(w.expiresAt) {
		w.active = false
		return false
	}
	return true
}
