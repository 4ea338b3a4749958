package printer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		time     time.Time
		expected string
	}{
		"Less than a second should be now.": {
			time:     now.Add(-500 * time.Millisecond),
			expected: "just now",
		},
		"1 second ago.": {
			time:     now.Add(-1 * time.Second),
			expected: "1 second ago",
		},
		"30 seconds ago.": {
			time:     now.Add(-30 * time.Second),
			expected: "30 seconds ago",
		},
		"1 minute ago.": {
			time:     now.Add(-90 * time.Second),
			expected: "1 minute ago",
		},
		"45 minutes ago.": {
			time:     now.Add(-45 * time.Minute),
			expected: "45 minutes ago",
		},
		"3 hours ago.": {
			time:     now.Add(-3 * time.Hour),
			expected: "3 hours ago",
		},
		"1 day ago.": {
			time:     now.Add(-25 * time.Hour),
			expected: "1 day ago",
		},
		"10 days ago.": {
			time:     now.Add(-10 * 24 * time.Hour),
			expected: "10 days ago",
		},
		"Future times should be marked.": {
			time:     now.Add(time.Hour),
			expected: "in the future",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, timeAgo(now, test.time))
		})
	}
}
