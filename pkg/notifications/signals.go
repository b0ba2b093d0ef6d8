package notifications

// SignalInput is a value snapshot of the record fields the policy oracles
// read. Extraction runs on the snapshot so oracles never hold a record.
type SignalInput struct {
	Key               string
	Package           string
	UID               int
	UserID            int
	ChannelID         string
	ChannelImportance Importance
	ChannelVisibility Visibility
	BypassDnd         bool
	ShowBadge         bool
	AllowBubbles      bool
	Category          string
	People            []string
	Flags             Flags
	Visibility        Visibility
	Group             string
}

// Signals is the output of signal extraction.
type Signals struct {
	Importance        Importance
	Explanation       string
	Intercepted       bool
	IsCall            bool
	SuppressedEffects SuppressedEffects
	Visibility        Visibility
	ShowBadge         bool
	CanBubble         bool
	Hidden            bool
}
