package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/psmcsim/internal/physics"
)

// Presets are the calibrated parameter epochs, keyed by fit year.
var Presets = map[string]physics.Params{
	"2008": {
		U01: 6.23487, U01Quad: -0.524545, U12: 7.76193, C1: 122.204, C2: 16.5221,
		ACIS50: 55.4133, ACIS90: 31.2034, ACIS150: 27.1999,
		HRCI50: 43.8671, HRCI90: 29.8505, HRCI150: 33.2693,
		HRCS50: 33.1306, HRCS90: 32.2106, HRCS150: 38.385,
	},
	"2009": {
		U01: 5.64142, U01Quad: -1.09691, U12: 8.29004, C1: 93.5736, C2: 12.9992,
		ACIS50: 56.0669, ACIS90: 29.7084, ACIS150: 29.0302,
		HRCI50: 42.717, HRCI90: 29.420, HRCI150: 35.703,
		HRCS50: 33.167, HRCS90: 31.769, HRCS150: 39.351,
	},
	"2010": {
		U01: 6.036, U01Quad: -0.599, U12: 8.451, C1: 114.609, C2: 11.362,
		ACIS50: 54.192, ACIS90: 26.975, ACIS150: 28.029,
		HRCI50: 38.543, HRCI90: 28.053, HRCI150: 32.977,
		HRCS50: 30.715, HRCS90: 30.013, HRCS150: 37.265,
	},
}

var presetNotes = map[string]string{
	"2008": "chi-squared fit",
	"2009": "Levenberg-Marquardt fit",
	"2010": "simplex fit",
}

func GetPreset(name string) (physics.Params, error) {
	p, ok := Presets[name]
	if !ok {
		return physics.Params{}, fmt.Errorf("unknown parameter preset %q (have %v)", name, ListPresets())
	}
	return p, nil
}

// PresetNote describes how a preset was calibrated.
func PresetNote(name string) string {
	return presetNotes[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
