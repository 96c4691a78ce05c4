package domain

import (
	"fmt"
	"sort"
	"strings"
)

// UserSelection maps a preference-category key (mood, genre, time, ...) to
// the user's chosen value. Keys are open-ended and none is required.
type UserSelection map[string]string

// selectionLabels maps known preference keys to the labels rendered into the
// prompt. Unlisted keys pass through verbatim.
var selectionLabels = map[string]string{
	"mood":    "기분",
	"genre":   "선호 장르",
	"time":    "시청 시간대",
	"with":    "함께 보는 사람",
	"age":     "연령대",
	"runtime": "선호 상영 시간",
}

// BuildPrompt composes the generation request from normalized weather, user
// preferences, and an optional exclusion list of previously shown titles.
// The result is deterministic for identical inputs and never mutated after
// construction.
func BuildPrompt(w NormalizedWeather, sel UserSelection, exclude []string) string {
	var b strings.Builder

	if len(exclude) > 0 {
		b.WriteString("다음 영화는 이미 추천했으니 제외해줘: ")
		b.WriteString(strings.Join(exclude, ", "))
		b.WriteString(".\n")
	}

	b.WriteString("현재 날씨는 ")
	b.WriteString(w.Description)
	if w.CurrentTemp != nil {
		fmt.Fprintf(&b, ", 기온 %.1f도", *w.CurrentTemp)
	}
	if w.FeelsLikeTemp != nil {
		fmt.Fprintf(&b, "(체감 %.1f도)", *w.FeelsLikeTemp)
	}
	if w.Humidity != nil {
		fmt.Fprintf(&b, ", 습도 %.0f%%", *w.Humidity)
	}
	b.WriteString("이야.\n")

	if parts := renderSelections(sel); parts != "" {
		b.WriteString("시청자 정보 - ")
		b.WriteString(parts)
		b.WriteString("\n")
	}

	b.WriteString("이 조건에 어울리는 영화를 최대 10편 추천해줘. ")
	b.WriteString("시리즈물이나 프랜차이즈 영화는 피하고, 이미 추천한 영화와 겹치지 않아야 해. ")
	b.WriteString("외국 영화는 한국어제목(원제) 형식으로 써줘. ")
	b.WriteString("다른 설명 없이 정확히 [title1, title2, ..., titleN] 형식으로만 답해줘.")

	return b.String()
}

// renderSelections renders each selection as "<label>: <value>" joined by
// commas, sorted by key so the prompt is deterministic.
func renderSelections(sel UserSelection) string {
	if len(sel) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sel))
	for k := range sel {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		label, ok := selectionLabels[k]
		if !ok {
			label = k
		}
		parts = append(parts, label+": "+sel[k])
	}
	return strings.Join(parts, ", ")
}
