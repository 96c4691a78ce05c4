// Package domain models the weather-conditioned movie recommendation
// pipeline: grid projection, weather normalization, prompt construction, and
// title extraction.
//
// # Forecast Grid
//
// The weather service addresses observations by a discrete (x, y) cell on a
// 5 km Lambert conformal conic grid covering the Korean peninsula, with
// standard parallels at 30° and 60° and the origin at 126°E 38°N offset to
// cell (43, 136). [ToGrid] projects a WGS-84 position onto this grid;
// [FromGrid] is the algebraic inverse, accurate to the cell quantization.
// Reference point: Seoul City Hall (37.5665, 126.9780) → (60, 127).
//
// # Observation Slots
//
// Ultra-short-term forecasts publish on the half hour and become available
// roughly ten minutes later. [LatestSlot] computes the most recent available
// slot by subtracting a configurable lag (default [DefaultBaseTimeLag]) and
// truncating to the HH30 boundary, in KST.
//
// # Category Codes
//
// Observations arrive as (category, value) string pairs:
//
//	SKY  sky condition: 1 clear, 3 partly cloudy, 4 overcast
//	PTY  precipitation: 0 none, 1 rain, 2 rain/snow, 3 snow, 4 shower
//	T1H  temperature in °C
//	REH  relative humidity in %
//	WSD  wind speed in m/s
//	RN1  one-hour precipitation in mm (kept as reported)
//
// Numeric categories parse as floats with nil on missing or unparseable
// input. The weather description falls back precipitation → sky → windy →
// unknown and is never empty. Feels-like temperature applies a wind-speed
// adjustment above 1 m/s and otherwise equals the actual temperature.
//
// # Titles
//
// Generated text is asked for the machine-parseable form
// "[title1, title2, ..., titleN]"; [ExtractTitles] falls back to numbered
// lines ("1. 영화1") and otherwise yields an empty list. Normalization strips
// surrounding quotes and year-only parentheticals ("영화1 (2023)" → "영화1")
// while preserving the Local(Foreign) dual-name form ("슈퍼맨(Superman)"),
// then drops characters outside the Latin/Hangul/digit allow-list.
package domain
