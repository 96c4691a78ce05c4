package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ObservationItem is a single category/value reading from the weather
// service, opaque until normalized.
type ObservationItem struct {
	Category     string `json:"category"`
	Value        string `json:"value"`
	ForecastDate string `json:"forecast_date"`
	ForecastTime string `json:"forecast_time"`
}

// NormalizedWeather is the semantic weather record fed into prompt building.
// FeelsLikeTemp is nil exactly when CurrentTemp is nil, and Description is
// never empty.
type NormalizedWeather struct {
	SkyCondition      string   `json:"sky_condition"`
	PrecipitationType string   `json:"precipitation_type"`
	Description       string   `json:"description"`
	CurrentTemp       *float64 `json:"current_temp"`
	FeelsLikeTemp     *float64 `json:"feels_like_temp"`
	Humidity          *float64 `json:"humidity"`
	WindSpeed         *float64 `json:"wind_speed"`
	Precipitation     string   `json:"precipitation"`
	ForecastTime      string   `json:"forecast_time"`
	Location          GridCell `json:"location"`
}

// Village forecast category codes.
const (
	catSky      = "SKY" // sky condition code
	catPty      = "PTY" // precipitation type code
	catTemp     = "T1H" // temperature, °C
	catHumidity = "REH" // relative humidity, %
	catWind     = "WSD" // wind speed, m/s
	catRain     = "RN1" // one-hour precipitation, mm (string passthrough)
)

// Sky condition values.
const (
	SkyClear        = "clear"
	SkyPartlyCloudy = "partly_cloudy"
	SkyOvercast     = "overcast"
)

// Precipitation type values.
const (
	PrecipNone     = "none"
	PrecipRain     = "rain"
	PrecipRainSnow = "rain_snow"
	PrecipSnow     = "snow"
	PrecipShower   = "shower"
)

var skyByCode = map[string]string{
	"1": SkyClear,
	"3": SkyPartlyCloudy,
	"4": SkyOvercast,
}

var precipByCode = map[string]string{
	"0": PrecipNone,
	"1": PrecipRain,
	"2": PrecipRainSnow,
	"3": PrecipSnow,
	"4": PrecipShower,
}

// Human-readable Korean labels used for the prompt.
var skyDescriptions = map[string]string{
	SkyClear:        "맑음",
	SkyPartlyCloudy: "구름많음",
	SkyOvercast:     "흐림",
}

var precipDescriptions = map[string]string{
	PrecipRain:     "비",
	PrecipRainSnow: "비/눈",
	PrecipSnow:     "눈",
	PrecipShower:   "소나기",
}

const (
	// DescriptionWindy is the coarse label derived from wind speed when
	// neither sky nor precipitation data is available.
	DescriptionWindy = "바람이 강함"
	// DescriptionUnknown is the last-resort label; Description never stays empty.
	DescriptionUnknown = "알 수 없음"

	// windyThreshold is the wind speed (m/s) above which sparse observations
	// are still described as windy instead of unknown.
	windyThreshold = 4.0
	// calmThreshold is the wind speed (m/s) below which no feels-like
	// adjustment applies.
	calmThreshold = 1.0
)

// NormalizeWeather converts raw observation items for a grid cell into a
// NormalizedWeather record. Returns a malformed-data error when the item
// collection is absent or empty.
func NormalizeWeather(cell GridCell, items []ObservationItem) (NormalizedWeather, error) {
	if len(items) == 0 {
		return NormalizedWeather{}, NewError(KindMalformedUpstreamData,
			errors.New("observation items missing or empty"))
	}

	// First reading per category wins; items arrive ordered by forecast time.
	byCategory := make(map[string]ObservationItem, len(items))
	for _, it := range items {
		if _, ok := byCategory[it.Category]; !ok {
			byCategory[it.Category] = it
		}
	}

	w := NormalizedWeather{Location: cell}
	if it, ok := byCategory[catSky]; ok {
		w.SkyCondition = skyByCode[strings.TrimSpace(it.Value)]
	}
	if it, ok := byCategory[catPty]; ok {
		w.PrecipitationType = precipByCode[strings.TrimSpace(it.Value)]
	}
	w.CurrentTemp = parseFloatOrNil(byCategory[catTemp].Value)
	w.Humidity = parseFloatOrNil(byCategory[catHumidity].Value)
	w.WindSpeed = parseFloatOrNil(byCategory[catWind].Value)
	w.Precipitation = strings.TrimSpace(byCategory[catRain].Value)
	w.FeelsLikeTemp = feelsLike(w.CurrentTemp, w.WindSpeed)
	w.ForecastTime = strings.TrimSpace(items[0].ForecastDate + " " + items[0].ForecastTime)
	w.Description = describe(w)

	return w, nil
}

// describe picks the weather description: precipitation first, then sky,
// then a wind-derived label, then the generic unknown label.
func describe(w NormalizedWeather) string {
	if d, ok := precipDescriptions[w.PrecipitationType]; ok {
		return d
	}
	if d, ok := skyDescriptions[w.SkyCondition]; ok {
		return d
	}
	if w.WindSpeed != nil && *w.WindSpeed >= windyThreshold {
		return DescriptionWindy
	}
	return DescriptionUnknown
}

// feelsLike applies a wind-chill style adjustment, rounded to one decimal.
// With no temperature there is no feels-like; with calm or unknown wind the
// feels-like equals the actual temperature.
func feelsLike(temp, wind *float64) *float64 {
	if temp == nil {
		return nil
	}
	if wind == nil || *wind < calmThreshold {
		v := *temp
		return &v
	}
	v := *temp - math.Pow(*wind, 0.16)*(*temp-35)
	v = math.Round(v*10) / 10
	return &v
}

// parseFloatOrNil parses a string as float64, returning nil on missing or
// unparseable input.
func parseFloatOrNil(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
