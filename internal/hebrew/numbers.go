// Package hebrew converts numbers to and from Hebrew numerals for
// perek and pasuk display (א, ב, ג, ...).
package hebrew

import "strconv"

var (
	ones     = []string{"", "א", "ב", "ג", "ד", "ה", "ו", "ז", "ח", "ט"}
	tens     = []string{"", "י", "כ", "ל", "מ", "נ", "ס", "ע", "פ", "צ"}
	hundreds = []string{"", "ק", "ר", "ש", "ת"}
)

// ToNumeral converts a number to its Hebrew numeral form. Zero maps to
// the empty string; numbers above 999 fall back to decimal digits.
// 15 and 16 become טו and טז so no combination spells a divine name.
func ToNumeral(num int) string {
	if num <= 0 {
		return ""
	}
	if num > 999 {
		return strconv.Itoa(num)
	}
	if num == 15 {
		return "טו"
	}
	if num == 16 {
		return "טז"
	}

	result := ""
	h := num / 100
	t := (num % 100) / 10
	o := num % 10

	if h > 0 {
		// 500-900 compose from ת (400).
		if h >= 5 {
			for i := 0; i < h/4; i++ {
				result += hundreds[4]
			}
			result += hundreds[h%4]
		} else {
			result += hundreds[h]
		}
	}

	if t == 1 && o == 5 {
		result += "טו"
	} else if t == 1 && o == 6 {
		result += "טז"
	} else {
		result += tens[t] + ones[o]
	}
	return result
}

// values maps each numeral rune to its value for parsing.
var values = map[rune]int{
	'א': 1, 'ב': 2, 'ג': 3, 'ד': 4, 'ה': 5, 'ו': 6, 'ז': 7, 'ח': 8, 'ט': 9,
	'י': 10, 'כ': 20, 'ל': 30, 'מ': 40, 'נ': 50, 'ס': 60, 'ע': 70, 'פ': 80, 'צ': 90,
	'ק': 100, 'ר': 200, 'ש': 300, 'ת': 400,
}

// FromNumeral parses a Hebrew numeral back to its value. Geresh and
// gershayim punctuation is ignored. Returns 0 for strings containing
// non-numeral runes.
func FromNumeral(s string) int {
	total := 0
	for _, r := range s {
		if r == '\'' || r == '"' || r == '׳' || r == '״' {
			continue
		}
		v, ok := values[r]
		if !ok {
			return 0
		}
		total += v
	}
	return total
}
