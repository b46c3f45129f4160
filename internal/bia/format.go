package bia

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/bia-service/internal/model"
)

func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

func money(v *float64) string {
	if v == nil {
		return model.Unknown
	}
	return printer().Sprintf("$%d", int64(math.Round(*v)))
}

func count(v *int) string {
	if v == nil {
		return model.Unknown
	}
	return printer().Sprintf("%d", *v)
}

func percent(v *float64) string {
	if v == nil {
		return model.Unknown
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "%"
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.Unknown
	}
	return s
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// hoursText renders a duration given in hours, e.g. "15 minutes", "1 hour",
// "2.5 hours".
func hoursText(h float64) string {
	if h < 1 {
		return plural(int(math.Round(h*60)), "minute")
	}
	if h == math.Trunc(h) {
		return plural(int(h), "hour")
	}
	return strconv.FormatFloat(h, 'f', 1, 64) + " hours"
}

func minutesText(m *int) string {
	if m == nil {
		return model.TBD
	}
	return hoursText(float64(*m) / 60)
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

// parseHours reads durations like "15 minutes" or "4 hours" back into hours.
func parseHours(s string) (float64, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, false
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	switch strings.TrimSuffix(strings.ToLower(fields[1]), "s") {
	case "minute":
		return n / 60, true
	case "hour":
		return n, true
	case "day":
		return n * 24, true
	}
	return 0, false
}
