package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	phoneE164Re    = regexp.MustCompile(`^\+\d{8,15}$`)
	nonPhoneRe     = regexp.MustCompile(`[^\d+]`)
	nonDigitRe     = regexp.MustCompile(`\D`)
	dateYMDRe      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	dateMDYRe      = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	time24Re       = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	timeAMPMRe     = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s*([ap]\.?m\.?)$`)
	timeHourAMPMRe = regexp.MustCompile(`(?i)^(\d{1,2})([ap]m)$`)
)

// NormalizePhone normalizes a phone to E.164 where possible. Ten-digit
// numbers get the +1 country code. Returns "" when the input is not
// phone shaped.
func NormalizePhone(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	stripped := nonPhoneRe.ReplaceAllString(text, "")
	if strings.HasPrefix(stripped, "+") && phoneE164Re.MatchString(stripped) {
		return stripped
	}

	digits := nonDigitRe.ReplaceAllString(stripped, "")
	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	default:
		return ""
	}
}

// ParseDate parses "today", "tomorrow", "2006-01-02", or "1/2/2006"
// into a calendar date in loc. The bool result reports success.
func ParseDate(text string, now time.Time, loc *time.Location) (time.Time, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	local := now.In(loc)

	switch t {
	case "today":
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc), true
	case "tomorrow":
		tomorrow := local.AddDate(0, 0, 1)
		return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, loc), true
	}

	if m := dateYMDRe.FindStringSubmatch(t); m != nil {
		return makeDate(m[1], m[2], m[3], loc)
	}
	if m := dateMDYRe.FindStringSubmatch(t); m != nil {
		return makeDate(m[3], m[1], m[2], loc)
	}

	return time.Time{}, false
}

func makeDate(year, month, day string, loc *time.Location) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc), true
}

// ParseClock parses "6pm", "6:30 pm", or 24-hour "18:30" into hour and
// minute. The bool result reports success.
func ParseClock(text string) (hour, minute int, ok bool) {
	t := strings.TrimSpace(text)

	if m := timeHourAMPMRe.FindStringSubmatch(strings.ReplaceAll(strings.ToLower(t), " ", "")); m != nil {
		h, _ := strconv.Atoi(m[1])
		return to24Hour(h, 0, m[2])
	}
	if m := timeAMPMRe.FindStringSubmatch(t); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm := 0
		if m[2] != "" {
			mm, _ = strconv.Atoi(m[2])
		}
		return to24Hour(h, mm, m[3])
	}
	if m := time24Re.FindStringSubmatch(t); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if h <= 23 && mm <= 59 {
			return h, mm, true
		}
	}

	return 0, 0, false
}

func to24Hour(h, m int, ampm string) (int, int, bool) {
	if h < 1 || h > 12 || m < 0 || m > 59 {
		return 0, 0, false
	}
	ampm = strings.ReplaceAll(strings.ToLower(ampm), ".", "")
	if ampm == "pm" && h != 12 {
		h += 12
	}
	if ampm == "am" && h == 12 {
		h = 0
	}
	return h, m, true
}

// RoundUpTo15m rounds a time up to the next 15-minute increment.
func RoundUpTo15m(t time.Time) time.Time {
	t = t.Truncate(time.Minute)
	remainder := t.Minute() % 15
	if remainder == 0 {
		return t
	}
	return t.Add(time.Duration(15-remainder) * time.Minute)
}
