package domain

import "time"

// DefaultBaseTimeLag is how far behind the wall clock the latest published
// observation slot is assumed to be. The upstream publishes each slot roughly
// ten minutes after the fact; the extra margin absorbs publication jitter.
const DefaultBaseTimeLag = 40 * time.Minute

// kst is the timezone the weather service keys its slots by.
var kst = time.FixedZone("KST", 9*60*60)

// LatestSlot returns the base date (YYYYMMDD) and base time (HHMM) of the
// most recent available observation slot: the lag is subtracted from the
// current time and the result truncated down to the half-hour slot boundary.
func LatestSlot(lag time.Duration) (baseDate, baseTime string) {
	t := clock.Now().Add(-lag).In(kst)
	if t.Minute() < 30 {
		t = t.Add(-time.Hour)
	}
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 30, 0, 0, kst)
	return t.Format("20060102"), t.Format("1504")
}
