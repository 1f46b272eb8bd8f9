package newebpay

import (
	"fmt"
	"strings"
	"time"
)

const payTimeLayout = "2006-01-02 15:04:05"

// ParsePayTime parses the gateway's PayTime, which arrives as
// "2025-06-0523:01:54" (no separator), "2025-06-05 23:01:54" or with a "T".
// An empty string yields the zero time and no error.
func ParsePayTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = taipei()
	}
	if len(s) > 10 {
		switch s[10] {
		case ' ':
		case 'T':
			s = s[:10] + " " + s[11:]
		default:
			s = s[:10] + " " + s[10:]
		}
	}
	t, err := time.ParseInLocation(payTimeLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: pay time %q", ErrMalformedTradeInfo, s)
	}
	return t, nil
}
