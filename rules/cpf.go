package rules

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCPF = errors.New("invalid CPF")

// NormalizeCPF validates a Brazilian taxpayer number and returns it in the
// 000.000.000-00 form. Punctuation in the input is ignored.
func NormalizeCPF(raw string) (string, error) {
	digits := make([]int, 0, 11)
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == '.' || r == '-' || r == ' ':
		default:
			return "", ErrInvalidCPF
		}
	}
	if len(digits) != 11 {
		return "", ErrInvalidCPF
	}

	repeated := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			repeated = false
			break
		}
	}
	if repeated {
		return "", ErrInvalidCPF
	}

	if cpfDigit(digits[:9]) != digits[9] || cpfDigit(digits[:10]) != digits[10] {
		return "", ErrInvalidCPF
	}
	return formatCPF(digits), nil
}

// CompleteCPF appends the two check digits to a nine digit base and returns
// the formatted number.
func CompleteCPF(base string) (string, error) {
	if len(base) != 9 {
		return "", fmt.Errorf("%w: base must have 9 digits", ErrInvalidCPF)
	}
	digits := make([]int, 0, 11)
	for _, r := range base {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: base must have 9 digits", ErrInvalidCPF)
		}
		digits = append(digits, int(r-'0'))
	}
	digits = append(digits, cpfDigit(digits))
	digits = append(digits, cpfDigit(digits))
	return formatCPF(digits), nil
}

func cpfDigit(digits []int) int {
	sum := 0
	weight := len(digits) + 1
	for _, d := range digits {
		sum += d * weight
		weight--
	}
	r := sum * 10 % 11
	if r == 10 {
		return 0
	}
	return r
}

func formatCPF(digits []int) string {
	var b strings.Builder
	for i, d := range digits {
		switch i {
		case 3, 6:
			b.WriteByte('.')
		case 9:
			b.WriteByte('-')
		}
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}
