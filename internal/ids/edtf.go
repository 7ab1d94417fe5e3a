package ids

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	edtfDate     = regexp.MustCompile(`^(-?)([0-9X]{4})(?:-([0-9X]{2})(?:-([0-9X]{2}))?)?([?~%]?)$`)
	edtfLongYear = regexp.MustCompile(`^Y-?[0-9]{5,}$`)
	edtfDateTime = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}(Z|[+-][0-9]{2}(:[0-9]{2})?)?$`)
)

// ValidateEDTF checks that s is an Extended Date/Time Format level 0 or 1
// expression: dates with optional unspecified digits and qualifiers, long
// years, and intervals with open or unknown ends.
func ValidateEDTF(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%w: empty date", ErrDerivation)
	}

	parts := strings.Split(s, "/")
	switch len(parts) {
	case 1:
		if !validEDTFDate(parts[0]) {
			return fmt.Errorf("%w: %q is not a valid EDTF date", ErrDerivation, s)
		}
		return nil
	case 2:
		if parts[0] == "" && parts[1] == "" {
			return fmt.Errorf("%w: interval %q has no bounds", ErrDerivation, s)
		}
		for _, p := range parts {
			if p == "" || p == ".." {
				continue
			}
			if !validEDTFDate(p) {
				return fmt.Errorf("%w: %q is not a valid EDTF interval", ErrDerivation, s)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %q has too many interval separators", ErrDerivation, s)
	}
}

func validEDTFDate(s string) bool {
	if edtfLongYear.MatchString(s) || edtfDateTime.MatchString(s) {
		return true
	}
	m := edtfDate.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	month, day := m[3], m[4]
	if month != "" && !strings.Contains(month, "X") {
		n, _ := strconv.Atoi(month)
		season := n >= 21 && n <= 24 && day == ""
		if (n < 1 || n > 12) && !season {
			return false
		}
	}
	if day != "" && !strings.Contains(day, "X") {
		n, _ := strconv.Atoi(day)
		if n < 1 || n > 31 {
			return false
		}
	}
	return true
}
