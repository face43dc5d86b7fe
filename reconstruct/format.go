package reconstruct

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

var (
	roundingUnit = uint256.NewInt(10_000)
	halfRounding = uint256.NewInt(5_000)
	octasPerMove = uint256.NewInt(100_000_000)
)

// FormatGas abbreviates gas units: 1.50M, 2.00K, 999.
func FormatGas(gas uint64) string {
	switch {
	case gas >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(gas)/1_000_000)
	case gas >= 1_000:
		return fmt.Sprintf("%.2fK", float64(gas)/1_000)
	default:
		return strconv.FormatUint(gas, 10)
	}
}

// FormatOctas renders an octas amount as MOVE with four decimals, rounding half up.
func FormatOctas(octas *uint256.Int) string {
	// octas/1e8 at 4 decimals is round(octas/1e4) split at 1e4.
	scaled, overflow := new(uint256.Int).AddOverflow(octas, halfRounding)
	if overflow {
		scaled = new(uint256.Int).Set(octas)
	}
	scaled.Div(scaled, roundingUnit)

	whole, frac := new(uint256.Int), new(uint256.Int)
	whole.DivMod(scaled, roundingUnit, frac)
	return whole.Dec() + "." + fmt.Sprintf("%04d", frac.Uint64())
}

// FormatOctasExact renders an octas amount as MOVE with all eight decimals.
func FormatOctasExact(octas *uint256.Int) string {
	whole, frac := new(uint256.Int), new(uint256.Int)
	whole.DivMod(octas, octasPerMove, frac)
	return whole.Dec() + "." + fmt.Sprintf("%08d", frac.Uint64())
}

// FormatMoveAmount renders a decimal octas string as MOVE.
func FormatMoveAmount(amount string) (string, error) {
	octas, err := parseOctas(amount)
	if err != nil {
		return "", err
	}
	return FormatOctas(octas), nil
}

// CalculateGasCost returns gasUsed*gasPrice in MOVE.
func CalculateGasCost(gasUsed, gasPrice string) (string, error) {
	used, err := parseOctas(gasUsed)
	if err != nil {
		return "", fmt.Errorf("gas used: %w", err)
	}
	price, err := parseOctas(gasPrice)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}
	cost, overflow := new(uint256.Int).MulOverflow(used, price)
	if overflow {
		return "", fmt.Errorf("gas cost of %s * %s overflows", gasUsed, gasPrice)
	}
	return FormatOctas(cost), nil
}

func parseOctas(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}
