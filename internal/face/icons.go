// Package face is the data contract between the weather cache and whatever draws the
// watch face: which icon to show, what text to print and when to redraw.
package face

// Icon names a weather artwork.
type Icon string

const (
	IconNone        Icon = ""
	IconStorm       Icon = "storm"
	IconLightRain   Icon = "light_rain"
	IconRain        Icon = "rain"
	IconSnow        Icon = "snow"
	IconFog         Icon = "fog"
	IconClear       Icon = "clear"
	IconLightClouds Icon = "light_clouds"
	IconClouds      Icon = "clouds"
)

type iconRange struct {
	lower, upper int
	icon         Icon
}

// Checked in order; the first matching range wins, so 761 is fog.
var iconTable = []iconRange{
	{200, 232, IconStorm},
	{300, 321, IconLightRain},
	{500, 504, IconRain},
	{511, 511, IconSnow},
	{520, 531, IconRain},
	{600, 622, IconSnow},
	{701, 761, IconFog},
	{761, 761, IconStorm},
	{781, 781, IconStorm},
	{800, 800, IconClear},
	{801, 801, IconLightClouds},
	{802, 804, IconClouds},
}

// IconFor maps an OpenWeatherMap condition code to its artwork.
func IconFor(code int) (Icon, bool) {
	for _, r := range iconTable {
		if code >= r.lower && code <= r.upper {
			return r.icon, true
		}
	}
	return IconNone, false
}
