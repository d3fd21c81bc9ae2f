package normalize

import (
	"strconv"
	"strings"

	"penmatch/internal/match/models"
)

// penLength is the number of digits in a PEN, check digit included.
const penLength = 9

var penSeparators = strings.NewReplacer(" ", "", "-", "")

func normalizeSubmittedPEN(raw string) models.SubmittedPEN {
	value := penSeparators.Replace(strings.TrimSpace(raw))
	if value == "" {
		return models.SubmittedPEN{}
	}
	return models.SubmittedPEN{
		Value:    value,
		Supplied: true,
		Valid:    ValidPEN(value),
	}
}

// ValidPEN checks the PEN mod-10 check digit: the odd-position digits are
// summed, the even-position digits read as one number are doubled and their
// digits summed, and the check digit brings the total to a multiple of ten.
func ValidPEN(pen string) bool {
	if len(pen) != penLength {
		return false
	}
	for _, r := range pen {
		if r < '0' || r > '9' {
			return false
		}
	}
	return CheckDigit(pen[:penLength-1]) == int(pen[penLength-1]-'0')
}

// CheckDigit computes the ninth digit for an eight-digit PEN body. It
// returns -1 when body is not eight digits.
func CheckDigit(body string) int {
	if len(body) != penLength-1 {
		return -1
	}
	var oddSum int
	var even strings.Builder
	for i, r := range body {
		if r < '0' || r > '9' {
			return -1
		}
		if i%2 == 0 {
			oddSum += int(r - '0')
		} else {
			even.WriteRune(r)
		}
	}
	evenNum, err := strconv.Atoi(even.String())
	if err != nil {
		return -1
	}
	var evenSum int
	for _, r := range strconv.Itoa(evenNum * 2) {
		evenSum += int(r - '0')
	}
	total := oddSum + evenSum
	if total%10 == 0 {
		return 0
	}
	return 10 - total%10
}
