package numbers

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenCount is a raw ERC-20 amount in the token's smallest unit along with the
// token's decimals. Value stays a string so it survives JSON without precision loss.
type TokenCount struct {
	Value    string `json:"value"`
	Decimals uint8  `json:"decimals"`
}

func NewTokenCount(value *big.Int, decimals uint8) TokenCount {
	if value == nil {
		value = new(big.Int)
	}
	return TokenCount{Value: value.String(), Decimals: decimals}
}

var unsignedIntegerRegex = regexp.MustCompile(`^[0-9]+$`)

// ParseTokenCount parses a non-negative base 10 token amount of any size.
func ParseTokenCount(tokenCount string) (*big.Int, error) {
	if !unsignedIntegerRegex.MatchString(tokenCount) {
		return nil, fmt.Errorf("invalid token count '%s': must be a non-negative base 10 integer", tokenCount)
	}
	v, ok := new(big.Int).SetString(tokenCount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token count '%s'", tokenCount)
	}
	return v, nil
}

// PercentageOfTokenCount returns tokenCount * percentage / 100, truncated.
func PercentageOfTokenCount(tokenCount TokenCount, percentage uint64) (TokenCount, error) {
	if percentage > 100 {
		return TokenCount{}, fmt.Errorf("invalid percentage %d: must be between 0 and 100", percentage)
	}
	amount, err := ParseTokenCount(tokenCount.Value)
	if err != nil {
		return TokenCount{}, err
	}
	result := new(big.Int).Mul(amount, new(big.Int).SetUint64(percentage))
	result.Quo(result, big.NewInt(100))
	return NewTokenCount(result, tokenCount.Decimals), nil
}

// wholeNumberNotationThreshold is the number of digits in the whole part past
// which scientific notation is easier to read than compact notation.
const wholeNumberNotationThreshold = 18

// ReadableTokenCount renders a raw token amount for display:
//   - amounts below one whole token use scientific notation with 2 significant digits (1.2E-4)
//   - whole parts longer than 18 digits use scientific notation with 2 fraction digits (1.23E20)
//   - everything else uses compact notation with at most 2 fraction digits (1.23K, 45.6M)
func ReadableTokenCount(tokenCount TokenCount) (string, error) {
	value, err := ParseTokenCount(tokenCount.Value)
	if err != nil {
		return "", err
	}
	if value.Sign() == 0 {
		return "0", nil
	}
	digits := value.String()
	decimals := int(tokenCount.Decimals)

	if len(digits) <= decimals {
		return formatScientific(digits, -decimals, 2), nil
	}

	whole := digits[:len(digits)-decimals]
	if len(whole) > wholeNumberNotationThreshold {
		return formatScientific(whole, 0, 3), nil
	}

	return formatCompact(decimal.NewFromBigInt(value, -int32(decimals))), nil
}

// formatScientific renders digits * 10^exp10 as <mantissa>E<exponent>.
func formatScientific(digits string, exp10 int, significantDigits int32) string {
	exponent := len(digits) - 1 + exp10
	mantissa := decimal.RequireFromString(digits).
		Shift(-int32(len(digits) - 1)).
		Round(significantDigits - 1)

	if mantissa.GreaterThanOrEqual(decimal.NewFromInt(10)) {
		mantissa = mantissa.Shift(-1)
		exponent++
	}
	return mantissa.String() + "E" + strconv.Itoa(exponent)
}

var compactSuffixes = []string{"", "K", "M", "B", "T"}

func formatCompact(value decimal.Decimal) string {
	thousand := decimal.NewFromInt(1000)

	suffix := 0
	scaled := value
	for suffix < len(compactSuffixes)-1 && scaled.GreaterThanOrEqual(thousand) {
		scaled = scaled.Shift(-3)
		suffix++
	}
	scaled = scaled.Round(2)
	// 999.999 rounds up into the next magnitude
	if suffix < len(compactSuffixes)-1 && scaled.GreaterThanOrEqual(thousand) {
		scaled = scaled.Shift(-3).Round(2)
		suffix++
	}
	return groupThousands(scaled.String()) + compactSuffixes[suffix]
}

func groupThousands(s string) string {
	whole, fraction, hasFraction := strings.Cut(s, ".")
	if len(whole) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	if hasFraction {
		b.WriteByte('.')
		b.WriteString(fraction)
	}
	return b.String()
}
