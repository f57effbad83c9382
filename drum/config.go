package drum

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultMaxSample is the top of a 10-bit ADC reading.
const DefaultMaxSample = 1023

// VelocityMode selects how a strike's NoteOn velocity is derived.
//
// The piezo front end has an unreliable dynamic range, so deployments run
// with VelocityFixed. VelocityProportional scales the velocity with how far
// the triggering sample cleared the threshold.
type VelocityMode string

const (
	VelocityFixed        VelocityMode = "fixed"
	VelocityProportional VelocityMode = "proportional"
)

// ParseVelocityMode accepts the flag/JSON spelling of a mode.
func ParseVelocityMode(s string) (VelocityMode, error) {
	switch VelocityMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", VelocityFixed:
		return VelocityFixed, nil
	case VelocityProportional:
		return VelocityProportional, nil
	}
	return "", fmt.Errorf("unknown velocity mode %q", s)
}

// ChannelConfig binds one pad to a pitch. Note 0 is an unused slot.
type ChannelConfig struct {
	Note      uint8 `json:"note"`
	Threshold int   `json:"threshold"`
}

// Config is the immutable per-deployment pad table.
type Config struct {
	Name        string          `json:"name"`
	MIDIChannel uint8           `json:"midi_channel"` // 0-15
	MaxSample   int             `json:"max_sample"`
	Velocity    VelocityMode    `json:"velocity"`
	Channels    []ChannelConfig `json:"channels"`
}

// withDefaults returns a copy with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.MaxSample == 0 {
		c.MaxSample = DefaultMaxSample
	}
	if c.Velocity == "" {
		c.Velocity = VelocityFixed
	}
	c.Channels = append([]ChannelConfig(nil), c.Channels...)
	return c
}

// Validate reports the first problem found in the table.
func (c Config) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("config %q: no channels", c.Name)
	}
	if c.MIDIChannel > 15 {
		return fmt.Errorf("config %q: midi_channel must be 0-15, got %d", c.Name, c.MIDIChannel)
	}
	if c.MaxSample <= 0 {
		return fmt.Errorf("config %q: max_sample must be > 0", c.Name)
	}
	if _, err := ParseVelocityMode(string(c.Velocity)); err != nil {
		return fmt.Errorf("config %q: %w", c.Name, err)
	}
	for i, ch := range c.Channels {
		if ch.Note > 127 {
			return fmt.Errorf("config %q: channel %d: note must be 0-127, got %d", c.Name, i, ch.Note)
		}
		if ch.Threshold < 0 {
			return fmt.Errorf("config %q: channel %d: threshold must be >= 0", c.Name, i)
		}
		if ch.Threshold >= c.MaxSample {
			return fmt.Errorf("config %q: channel %d: threshold %d not below max_sample %d", c.Name, i, ch.Threshold, c.MaxSample)
		}
	}
	return nil
}

// ParseConfig decodes a kit table from JSON, fills defaults and validates it.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	mode, err := ParseVelocityMode(string(c.Velocity))
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", c.Name, err)
	}
	c.Velocity = mode
	c = c.withDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
