package providers

import (
	"github.com/i474232898/sunshine-wear/internal/common"
	"github.com/i474232898/sunshine-wear/internal/weather"
)

type codeRange struct {
	lower, upper int
	id           weather.ConditionID
}

func lookup(table []codeRange, code int) (weather.ConditionID, bool) {
	for _, r := range table {
		if code >= r.lower && code <= r.upper {
			return r.id, true
		}
	}
	return weather.ConditionUnknown, false
}

// WeatherAPI.com condition codes.
var weatherAPICodes = []codeRange{
	{1000, 1000, weather.ConditionClear},
	{1003, 1003, weather.ConditionFewClouds},
	{1006, 1006, weather.ConditionClouds},
	{1009, 1009, weather.ConditionOvercast},
	{1030, 1030, weather.ConditionMist},
	{1063, 1063, weather.ConditionLightRain},
	{1066, 1066, weather.ConditionSnow},
	{1069, 1072, weather.ConditionSleet},
	{1087, 1087, weather.ConditionThunderstorm},
	{1114, 1117, weather.ConditionSnow},
	{1135, 1147, weather.ConditionFog},
	{1150, 1171, weather.ConditionDrizzle},
	{1180, 1183, weather.ConditionLightRain},
	{1186, 1189, weather.ConditionRain},
	{1192, 1195, weather.ConditionHeavyRain},
	{1198, 1201, weather.ConditionFreezingRain},
	{1204, 1207, weather.ConditionSleet},
	{1210, 1225, weather.ConditionSnow},
	{1237, 1237, weather.ConditionSleet},
	{1240, 1246, weather.ConditionShowers},
	{1249, 1252, weather.ConditionSleet},
	{1255, 1264, weather.ConditionSnowShowers},
	{1273, 1282, weather.ConditionThunderstorm},
}

func mapWeatherAPICondition(code int, text string) weather.ConditionID {
	if id, ok := lookup(weatherAPICodes, code); ok {
		return id
	}
	switch {
	case text == "":
		return weather.ConditionUnknown
	case common.HasAnyFold(text, "thunder", "storm"):
		return weather.ConditionThunderstorm
	case common.HasAnyFold(text, "snow", "sleet", "blizzard"):
		return weather.ConditionSnow
	case common.HasAnyFold(text, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case common.HasAnyFold(text, "fog", "mist"):
		return weather.ConditionFog
	case common.HasAnyFold(text, "cloud", "overcast"):
		return weather.ConditionClouds
	case common.HasAnyFold(text, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}

// WMO weather interpretation codes used by Open-Meteo.
var wmoCodes = []codeRange{
	{0, 0, weather.ConditionClear},
	{1, 1, weather.ConditionFewClouds},
	{2, 2, weather.ConditionClouds},
	{3, 3, weather.ConditionOvercast},
	{45, 48, weather.ConditionFog},
	{51, 57, weather.ConditionDrizzle},
	{61, 61, weather.ConditionLightRain},
	{63, 63, weather.ConditionRain},
	{65, 65, weather.ConditionHeavyRain},
	{66, 67, weather.ConditionFreezingRain},
	{71, 77, weather.ConditionSnow},
	{80, 82, weather.ConditionShowers},
	{85, 86, weather.ConditionSnowShowers},
	{95, 99, weather.ConditionThunderstorm},
}

func mapWMOCondition(code int) weather.ConditionID {
	id, _ := lookup(wmoCodes, code)
	return id
}
