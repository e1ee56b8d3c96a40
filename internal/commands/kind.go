package commands

// Kind identifies one of the /trip commands.
type Kind int

const (
	KindUnknown Kind = iota
	KindHelp
	KindCreate
	KindReminder
	KindLocation
	KindInfo
	KindStart
)

type kindInfo struct {
	name  string
	usage string
	help  string
}

var kinds = [...]kindInfo{
	KindUnknown:  {},
	KindHelp:     {name: "help", usage: "/trip help", help: "Show this list of commands."},
	KindCreate:   {name: "create", usage: "/trip create <channel-name>", help: "Create a trip channel for your trip."},
	KindReminder: {name: "reminder", usage: "/trip reminder", help: "Turn trip reminders for this room on or off."},
	KindLocation: {name: "location", usage: "/trip location", help: "Share or change the location used for this room."},
	KindInfo:     {name: "info", usage: "/trip info", help: "Show what Trip Helper can do and what it knows about this room."},
	KindStart:    {name: "start", usage: "/trip start", help: "Get the default trip notification for this room."},
}

// ParseKind returns the command kind named by name, or KindUnknown. Matching
// is exact; callers lower-case the name first.
func ParseKind(name string) Kind {
	for k, info := range kinds {
		if k != int(KindUnknown) && info.name == name {
			return Kind(k)
		}
	}
	return KindUnknown
}

// Kinds returns every known command kind in display order.
func Kinds() []Kind {
	r := make([]Kind, 0, len(kinds)-1)
	for k := KindHelp; int(k) < len(kinds); k++ {
		r = append(r, k)
	}
	return r
}

func (k Kind) valid() bool {
	return k > KindUnknown && int(k) < len(kinds)
}

// String returns the command name, or "unknown".
func (k Kind) String() string {
	if !k.valid() {
		return "unknown"
	}
	return kinds[k].name
}

// Usage returns the invocation syntax for the command.
func (k Kind) Usage() string {
	if !k.valid() {
		return ""
	}
	return kinds[k].usage
}

// Help returns a one-line description of the command.
func (k Kind) Help() string {
	if !k.valid() {
		return ""
	}
	return kinds[k].help
}
