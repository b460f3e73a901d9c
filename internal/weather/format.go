package weather

import (
	"fmt"
	"math"
)

// TemperatureFormatter renders a Celsius value for display in the given units.
type TemperatureFormatter interface {
	Format(celsius float64, units Units) string
}

// Formatter rounds to whole degrees and appends a degree sign.
// Imperial units convert from Celsius first.
type Formatter struct{}

func (Formatter) Format(celsius float64, units Units) string {
	v := celsius
	if units == UnitsImperial {
		v = celsius*1.8 + 32
	}
	// %.0f would print "-0" for values in (-0.5, 0).
	r := math.Round(v)
	if r == 0 {
		r = 0
	}
	return fmt.Sprintf("%.0f°", r)
}
