// Package validate holds Brazilian document and phone checks used at the
// HTTP boundary.
package validate

import "unicode"

// IsCPF reports whether s is a valid CPF, with or without punctuation.
// The two check digits are verified; repeated-digit sequences like
// 111.111.111-11 pass the checksum but are rejected as known fakes.
func IsCPF(s string) bool {
	digits := make([]int, 0, 11)
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits = append(digits, int(r-'0'))
		} else if r != '.' && r != '-' && r != ' ' {
			return false
		}
	}
	if len(digits) != 11 {
		return false
	}
	same := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			same = false
			break
		}
	}
	if same {
		return false
	}
	if checkDigit(digits[:9], 10) != digits[9] {
		return false
	}
	return checkDigit(digits[:10], 11) == digits[10]
}

func checkDigit(digits []int, startWeight int) int {
	sum := 0
	for i, d := range digits {
		sum += d * (startWeight - i)
	}
	rest := sum * 10 % 11
	if rest == 10 {
		return 0
	}
	return rest
}

// IsBRPhone reports whether s looks like a Brazilian phone number: DDD plus
// an 8 or 9 digit local number, optional +55 prefix and punctuation.
func IsBRPhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == '(' || r == ')' || r == '-' || r == ' ':
		default:
			return false
		}
	}
	return digits == 10 || digits == 11 || digits == 12 || digits == 13
}
