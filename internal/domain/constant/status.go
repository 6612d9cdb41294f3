package constant

// TaskState defines the lifecycle of a scheduled task.
type TaskState int

const (
	// StatePending represents a task that is stored and has a live timer.
	StatePending TaskState = iota
	// StateFired represents a task whose reminder was delivered and is being removed.
	StateFired
	// StateCancelled represents a task removed by the user before it fired.
	StateCancelled
	// StateGone represents a task that no longer exists in storage.
	StateGone
)

func (s TaskState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateFired:
		return "FIRED"
	case StateCancelled:
		return "CANCELLED"
	case StateGone:
		return "GONE"
	default:
		return "UNKNOWN"
	}
}

// Time layouts used when rendering and parsing task times.
const (
	// DisplayLayout is how scheduled times are shown in listings.
	DisplayLayout = "2006-01-02T15:04"
	// CommandLayout is the date/time format accepted by the /add chat command.
	CommandLayout = "2006-01-02 15:04"
)
