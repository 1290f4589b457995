package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
)

// ReferenceZone builds a fixed zone from an offset such as "+05:30".
func ReferenceZone(offset string) (*time.Location, error) {
	offset = strings.TrimSpace(offset)
	if offset == "" {
		return time.UTC, nil
	}
	sign := 1
	switch offset[0] {
	case '+':
		offset = offset[1:]
	case '-':
		sign = -1
		offset = offset[1:]
	}
	mins, err := parseClock(offset)
	if err != nil {
		return nil, fmt.Errorf("invalid zone offset %q: %w", offset, err)
	}
	return time.FixedZone("UTC"+formatOffset(sign, mins), sign*mins*60), nil
}

// InActiveWindow reports whether now, seen in loc, falls inside [start, end).
// Windows may wrap midnight. A missing bound, or start == end, means always
// active.
func InActiveWindow(now time.Time, loc *time.Location, start, end string) (bool, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return true, nil
	}
	s, err := parseClock(start)
	if err != nil {
		return false, fmt.Errorf("invalid active_hours_start %q: %w", start, err)
	}
	e, err := parseClock(end)
	if err != nil {
		return false, fmt.Errorf("invalid active_hours_end %q: %w", end, err)
	}
	if s == e {
		return true, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	cur := local.Hour()*60 + local.Minute()
	if s < e {
		return cur >= s && cur < e, nil
	}
	return cur >= s || cur < e, nil
}

// CooldownUntil returns the end of the manual-edit cooldown and whether now
// is still inside it.
func CooldownUntil(now time.Time, lastManualEditAt *time.Time, minutes int) (time.Time, bool) {
	if minutes <= 0 || lastManualEditAt == nil || lastManualEditAt.IsZero() {
		return time.Time{}, false
	}
	until := lastManualEditAt.Add(time.Duration(minutes) * time.Minute)
	return until, now.Before(until)
}

func ShouldAutoPause(consecutiveDeviations, threshold int) bool {
	return threshold > 0 && consecutiveDeviations >= threshold
}

// CounterpartySide is the order-book side searched for competitors of the
// rule's own listings.
func CounterpartySide(tradeType string) string {
	if strings.EqualFold(strings.TrimSpace(tradeType), models.TradeTypeBuy) {
		return models.TradeTypeSell
	}
	return models.TradeTypeBuy
}

func parseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute")
	}
	return h*60 + m, nil
}

func formatOffset(sign, mins int) string {
	s := "+"
	if sign < 0 {
		s = "-"
	}
	return fmt.Sprintf("%s%02d:%02d", s, mins/60, mins%60)
}
