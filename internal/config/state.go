package config

// State is a Config's position in its lifecycle. States only move forward.
type State int

// Lifecycle states, in order.
const (
	StateCreated State = iota
	StatePreParsed
	StateIniResolved
	StateConftestsLoaded
	StateOptionsParsed
	StateConfigured
	StateUnconfigured
)

var stateNames = [...]string{
	StateCreated:         "created",
	StatePreParsed:       "pre-parsed",
	StateIniResolved:     "ini-resolved",
	StateConftestsLoaded: "conftests-loaded",
	StateOptionsParsed:   "options-parsed",
	StateConfigured:      "configured",
	StateUnconfigured:    "unconfigured",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// advance moves c to next, which must be later than the current state.
func (c *Config) advance(next State) error {
	if next <= c.state {
		return &StateError{From: c.state, To: next}
	}
	c.trace("state", "from", c.state, "to", next)
	c.state = next
	return nil
}

// State returns the current lifecycle state.
func (c *Config) State() State {
	return c.state
}
