package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a non-negative fixed-point monetary value held as an integer
// count of micro-units (1_000_000 units = 1.0). All arithmetic is integer;
// divisions floor, so fees and interest never round up against the escrow.
type Amount int64

// Scale is the number of micro-units per whole unit.
const Scale = 1_000_000

const maxDecimals = 6

var ErrInvalidAmount = errors.New("invalid amount")

// FromUnits builds an Amount from a raw micro-unit count.
func FromUnits(n int64) Amount { return Amount(n) }

// Parse converts a decimal string ("1.05", "0.005") into an Amount without
// going through float64. At most 6 decimal places are accepted.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > maxDecimals {
		return 0, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, maxDecimals)
	}
	whole, err := strconv.ParseUint(intPart, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	frac := int64(0)
	if fracPart != "" {
		f, err := strconv.ParseUint(fracPart, 10, 63)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		frac = int64(f)
		for i := len(fracPart); i < maxDecimals; i++ {
			frac *= 10
		}
	}
	// whole*Scale+frac must fit in int64; anything larger is rejected, never
	// wrapped.
	if int64(whole) > (math.MaxInt64-frac)/Scale {
		return 0, fmt.Errorf("%w: %q exceeds the representable range", ErrInvalidAmount, s)
	}
	return Amount(int64(whole)*Scale + frac), nil
}

// Units returns the raw micro-unit count.
func (a Amount) Units() int64 { return int64(a) }

// String renders the amount as a decimal string with trailing zeros trimmed.
func (a Amount) String() string {
	whole := int64(a) / Scale
	frac := int64(a) % Scale
	if frac == 0 {
		return strconv.FormatInt(whole, 10)
	}
	s := fmt.Sprintf("%d.%06d", whole, frac)
	return strings.TrimRight(s, "0")
}

func (a Amount) Add(b Amount) Amount { return a + b }
func (a Amount) Sub(b Amount) Amount { return a - b }

// Interest computes floor(principal * bps / 10000). Rates are parts-per-10000.
// The split keeps the intermediate product in range for any principal whose
// interest itself fits in an Amount.
func Interest(principal Amount, bps int64) Amount {
	q := int64(principal) / 10_000
	r := int64(principal) % 10_000
	return Amount(q*bps + r*bps/10_000)
}

// PlatformFee is the 10% platform levy, floored: floor(x * 10 / 100) = x/10.
func PlatformFee(x Amount) Amount {
	return Amount(int64(x) / 10)
}
