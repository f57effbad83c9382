package drum

// ChannelState is the mutable record of one pad.
type ChannelState struct {
	Note      uint8 // 0 = unused slot, never triggers
	Threshold int   // samples at or below are silence

	Active bool
	// DecayFloor is the lowest sample seen since the channel went active.
	// Meaningless while inactive.
	DecayFloor int
}

// Unused reports whether the slot has no pitch assigned.
func (c *ChannelState) Unused() bool { return c.Note == 0 }

// NewChannels builds the fixed channel array for a config, all inactive.
func NewChannels(cfg Config) []ChannelState {
	out := make([]ChannelState, len(cfg.Channels))
	for i, cc := range cfg.Channels {
		out[i] = ChannelState{Note: cc.Note, Threshold: cc.Threshold}
	}
	return out
}
