package drum

import (
	"fmt"
	"sort"
)

// Kits holds the reference pad tables, one per physical unit. Each unit has
// eight piezo inputs; unwired inputs carry note 0.
var Kits = map[string]Config{
	"kit": {
		Name:      "kit",
		MaxSample: DefaultMaxSample,
		Velocity:  VelocityFixed,
		Channels: []ChannelConfig{
			{Note: 53, Threshold: 30}, // ride bell
			{Note: 36, Threshold: 40}, // kick
			{Note: 38, Threshold: 30}, // snare
			{Note: 42, Threshold: 25}, // closed hat
			{Note: 46, Threshold: 25}, // open hat
			{Note: 49, Threshold: 35}, // crash
			{Note: 51, Threshold: 30}, // ride
			{Note: 0, Threshold: 30},
		},
	},
	"toms": {
		Name:      "toms",
		MaxSample: DefaultMaxSample,
		Velocity:  VelocityFixed,
		Channels: []ChannelConfig{
			{Note: 41, Threshold: 35}, // low floor tom
			{Note: 43, Threshold: 35}, // high floor tom
			{Note: 45, Threshold: 30}, // low tom
			{Note: 47, Threshold: 30}, // low-mid tom
			{Note: 48, Threshold: 30}, // hi-mid tom
			{Note: 50, Threshold: 30}, // high tom
			{Note: 0, Threshold: 30},
			{Note: 0, Threshold: 30},
		},
	},
	"percussion": {
		Name:      "percussion",
		MaxSample: DefaultMaxSample,
		Velocity:  VelocityFixed,
		Channels: []ChannelConfig{
			{Note: 60, Threshold: 20}, // hi bongo
			{Note: 61, Threshold: 20}, // low bongo
			{Note: 62, Threshold: 25}, // mute hi conga
			{Note: 63, Threshold: 25}, // open hi conga
			{Note: 64, Threshold: 25}, // low conga
			{Note: 54, Threshold: 15}, // tambourine
			{Note: 56, Threshold: 15}, // cowbell
			{Note: 75, Threshold: 15}, // claves
		},
	},
}

// Kit returns a copy of the named reference table.
func Kit(name string) (Config, error) {
	c, ok := Kits[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown kit %q (have %v)", name, KitNames())
	}
	return c.withDefaults(), nil
}

// KitNames lists the reference tables in sorted order.
func KitNames() []string {
	names := make([]string, 0, len(Kits))
	for n := range Kits {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
