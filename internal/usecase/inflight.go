package usecase

// singleFlight tracks which outbound call sites have a call outstanding.
// It is only touched from the event loop.
type singleFlight struct {
	busy map[string]bool
}

func newSingleFlight() singleFlight {
	return singleFlight{busy: make(map[string]bool)}
}

func (s singleFlight) begin(site string) bool {
	if s.busy[site] {
		return false
	}
	s.busy[site] = true
	return true
}

func (s singleFlight) end(site string) {
	delete(s.busy, site)
}
