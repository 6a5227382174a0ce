package refresh

// State is where a credential sits in the refresh lifecycle.
type State int

const (
	Fresh State = iota
	StaleCheckNeeded
	Refreshing
	Refreshed
	RefreshFailed
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case StaleCheckNeeded:
		return "stale_check_needed"
	case Refreshing:
		return "refreshing"
	case Refreshed:
		return "refreshed"
	case RefreshFailed:
		return "refresh_failed"
	default:
		return "unknown"
	}
}
