package documents

import (
	"net/url"
	"strconv"
	"time"

	"loan-workbench/internal/models"
)

const amzDateLayout = "20060102T150405Z"

// ExpiresAt reads the expiry of a pre-signed URL from its X-Amz-Date and
// X-Amz-Expires parameters.
func ExpiresAt(rawURL string) (time.Time, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return time.Time{}, false
	}
	q := u.Query()
	date, expires := q.Get("X-Amz-Date"), q.Get("X-Amz-Expires")
	if date == "" || expires == "" {
		return time.Time{}, false
	}
	issued, err := time.Parse(amzDateLayout, date)
	if err != nil {
		return time.Time{}, false
	}
	seconds, err := strconv.Atoi(expires)
	if err != nil {
		return time.Time{}, false
	}
	return issued.Add(time.Duration(seconds) * time.Second), true
}

// ExpiringSoon reports whether rawURL expires within margin of now. A URL
// whose expiry cannot be read counts as expiring.
func ExpiringSoon(rawURL string, now time.Time, margin time.Duration) bool {
	exp, ok := ExpiresAt(rawURL)
	if !ok {
		return true
	}
	return !now.Before(exp.Add(-margin))
}

// expiringSlots lists the slots of set that need a refresh.
func expiringSlots(set models.DocumentURLSet, now time.Time, margin time.Duration) []models.FileSlot {
	var out []models.FileSlot
	for _, slot := range set.Slots() {
		if ExpiringSoon(set[slot], now, margin) {
			out = append(out, slot)
		}
	}
	return out
}
