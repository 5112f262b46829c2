// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stringutils

import "strings"

var cnDigits = map[rune]int{
	'零': 0, '〇': 0,
	'一': 1, '壹': 1,
	'二': 2, '贰': 2, '两': 2,
	'三': 3, '叁': 3,
	'四': 4, '肆': 4,
	'五': 5, '伍': 5,
	'六': 6, '陆': 6,
	'七': 7, '柒': 7,
	'八': 8, '捌': 8,
	'九': 9, '玖': 9,
}

var cnUnits = map[rune]int{
	'十': 10, '拾': 10,
	'百': 100, '佰': 100,
	'千': 1000, '仟': 1000,
}

// ChineseToInt converts a Chinese numeral such as 二, 十二 or 一百零三 to its
// integer value. ASCII digit strings are accepted as well so callers can
// feed season/episode tokens without pre-classifying them.
func ChineseToInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if IsDigits(s) {
		n := 0
		for _, r := range s {
			n = n*10 + int(r-'0')
		}
		return n, true
	}

	total := 0
	section := 0
	seen := false
	for _, r := range s {
		if d, ok := cnDigits[r]; ok {
			section = section*10 + d
			seen = true
			continue
		}
		if u, ok := cnUnits[r]; ok {
			if section == 0 {
				// Leading unit: 十二 means 12.
				section = 1
			}
			total += section * u
			section = 0
			seen = true
			continue
		}
		return 0, false
	}
	if !seen {
		return 0, false
	}
	return total + section, true
}
