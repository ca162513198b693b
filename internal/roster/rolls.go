package roster

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"rollbook/internal/apperr"
)

// AssignRolls derives n sequential roll numbers from startRoll.
//
// startRoll must end in a run of decimal digits. The prefix before that run is
// kept and the run's value is incremented per student. Student i is padded with
// zeros to the width of the decimal length of i+1, so "2023CS1" yields
// 2023CS1, 2023CS2, 2023CS3 and "A09" yields A9, A10, A11.
func AssignRolls(startRoll string, n int) ([]string, error) {
	prefix, digits := splitTrailingDigits(strings.TrimSpace(startRoll))
	if digits == "" {
		return nil, apperr.Invalid("startRoll %q must end with a number", startRoll)
	}
	base, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil, apperr.Invalid("startRoll %q has a number that is too large", startRoll)
	}
	if n > 0 && base > math.MaxInt64-int64(n-1) {
		return nil, apperr.Invalid("startRoll %q has a number that is too large", startRoll)
	}

	rolls := make([]string, n)
	for i := range rolls {
		width := len(strconv.Itoa(i + 1))
		rolls[i] = fmt.Sprintf("%s%0*d", prefix, width, base+int64(i))
	}
	return rolls, nil
}

func splitTrailingDigits(s string) (prefix, digits string) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return s[:i], s[i:]
}
