package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
)

// datasetIDPattern matches registry ids and family members such as "btcData" or "altcoin_SOL".
var datasetIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_\-]{0,63}$`)

// MaxPeriod bounds indicator windows to keep request cost predictable.
const MaxPeriod = 2000

// ValidateDatasetID checks that id is non-empty and made of safe characters.
func ValidateDatasetID(id string) error {
	if !datasetIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidDatasetID, id)
	}
	return nil
}

// ParsePeriod parses an indicator window from a query value.
// An empty value yields def.
func ParsePeriod(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > MaxPeriod {
		return 0, &Error{Fields: map[string]string{"period": apperrors.ErrInvalidPeriod.Error()}}
	}
	return n, nil
}

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, str)
	if err != nil {
		t, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %s", apperrors.ErrInvalidDate, str)
		}
	}
	return t.UTC(), nil
}
