package printer

import (
	"fmt"
	"time"
)

var agoUnits = []struct {
	d    time.Duration
	name string
}{
	{24 * time.Hour, "day"},
	{time.Hour, "hour"},
	{time.Minute, "minute"},
	{time.Second, "second"},
}

// TimeAgo returns a human-readable relative time string.
// Examples: "just now", "1 minute ago", "3 hours ago".
func TimeAgo(t time.Time) string {
	return timeAgo(time.Now(), t)
}

func timeAgo(now, t time.Time) string {
	diff := now.Sub(t)
	if diff < 0 {
		return "in the future"
	}

	for _, u := range agoUnits {
		n := int(diff / u.d)
		switch {
		case n == 1:
			return fmt.Sprintf("1 %s ago", u.name)
		case n > 1:
			return fmt.Sprintf("%d %ss ago", n, u.name)
		}
	}

	return "just now"
}
