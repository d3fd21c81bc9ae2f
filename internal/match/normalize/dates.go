package normalize

import (
	"strconv"
	"strings"
	"time"

	"penmatch/internal/match/models"
)

const (
	minBirthYear = 1900
	maxBirthYear = 2099
)

// ParseBirthDate reads YYYYMMDD, YYYY-MM-DD, YYYYMM, YYYY-MM or YYYY, with
// '-', '/' or '.' separators. A 00 day or month (as legacy registry rows
// use) lowers the precision instead of failing. Anything else is Unknown.
func ParseBirthDate(raw string) models.BirthDate {
	parts := strings.FieldsFunc(strings.TrimSpace(raw), isDateSeparator)
	for _, p := range parts {
		if !allDigits(p) {
			return models.BirthDate{}
		}
	}

	switch len(parts) {
	case 1:
		compact := parts[0]
		switch len(compact) {
		case 8:
			return dateFromParts(atoi(compact[:4]), atoi(compact[4:6]), atoi(compact[6:]))
		case 6:
			return dateFromParts(atoi(compact[:4]), atoi(compact[4:6]), 0)
		case 4:
			return dateFromParts(atoi(compact), 0, 0)
		}
	case 2:
		if len(parts[0]) == 4 && len(parts[1]) <= 2 {
			return dateFromParts(atoi(parts[0]), atoi(parts[1]), 0)
		}
	case 3:
		if len(parts[0]) == 4 && len(parts[1]) <= 2 && len(parts[2]) <= 2 {
			return dateFromParts(atoi(parts[0]), atoi(parts[1]), atoi(parts[2]))
		}
	}
	return models.BirthDate{}
}

func isDateSeparator(r rune) bool {
	return r == '-' || r == '/' || r == '.' || r == ' '
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func dateFromParts(year, month, day int) models.BirthDate {
	if year < minBirthYear || year > maxBirthYear {
		return models.BirthDate{}
	}
	if month == 0 {
		return models.BirthDate{Year: year, Precision: models.PrecisionYear}
	}
	if month < 1 || month > 12 {
		return models.BirthDate{}
	}
	if day == 0 {
		return models.BirthDate{Year: year, Month: month, Precision: models.PrecisionYearMonth}
	}
	// Reject calendar overflow such as 2005-02-30.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return models.BirthDate{}
	}
	return models.BirthDate{Year: year, Month: month, Day: day, Precision: models.PrecisionFull}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
