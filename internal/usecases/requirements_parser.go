package usecases

import (
	"regexp"
	"strconv"
	"strings"

	"estate_crm/internal/entities"
)

var (
	// amountRegex captures a number and the word glued to or following it,
	// e.g. "2m", "1.5 million", "3 bedrooms", "500 ألف"
	amountRegex    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-z\p{Arabic}]+)?`)
	thousandsRegex = regexp.MustCompile(`(\d),(\d{3})`)
	rangeSepRegex  = regexp.MustCompile(`^\s*(?:-|–|~|to|and|الى|إلى|حتى|و)\s*$`)
	nameRegex      = regexp.MustCompile(`(?i)(?:my name is|name is|name:|call me|اسمي|انا اسمي)\s+([\p{L}]+(?:\s+[\p{L}]+)?)`)
)

var multipliers = map[string]float64{
	"m": 1e6, "mn": 1e6, "mil": 1e6, "million": 1e6, "millions": 1e6, "مليون": 1e6, "ملايين": 1e6,
	"k": 1e3, "thousand": 1e3, "ألف": 1e3, "الف": 1e3, "آلاف": 1e3,
	"egp": 1, "le": 1, "usd": 1, "aed": 1, "sar": 1, "جنيه": 1,
}

var bedroomWords = map[string]bool{
	"bed": true, "beds": true, "bedroom": true, "bedrooms": true, "br": true, "bd": true,
	"room": true, "rooms": true, "غرف": true, "غرفة": true, "غرفه": true,
}

// Bare numbers below this are not read as a budget
const minBareBudget = 10000

// Words that end a captured name
var nameStopWords = map[string]bool{
	"and": true, "i": true, "looking": true, "want": true, "need": true, "و": true,
}

type amount struct {
	value      float64
	unit       string
	start, end int
}

// ParseRequirements extracts budget, bedrooms and the customer's name from free
// text. Area and unit type are left to MatchingService.
func ParseRequirements(text string) entities.Requirements {
	var req entities.Requirements
	normalized := normalizeDigits(strings.ToLower(text))
	for thousandsRegex.MatchString(normalized) {
		normalized = thousandsRegex.ReplaceAllString(normalized, "$1$2")
	}

	amounts := findAmounts(normalized)
	var budgets []float64
	for i := 0; i < len(amounts); i++ {
		a := amounts[i]
		if bedroomWords[a.unit] {
			if req.Bedrooms == 0 && a.value >= 1 && a.value <= 20 {
				req.Bedrooms = int(a.value)
			}
			continue
		}

		// "1-2 million": the first bound borrows the second's unit
		if i+1 < len(amounts) && rangeSepRegex.MatchString(normalized[a.end:amounts[i+1].start]) {
			b := amounts[i+1]
			lo, hi := money(a, b.unit), money(b, b.unit)
			if lo > 0 && hi > 0 {
				if lo > hi {
					lo, hi = hi, lo
				}
				req.BudgetMin, req.BudgetMax = lo, hi
				i++
				continue
			}
		}
		if v := money(a, ""); v > 0 && req.BudgetMax == 0 {
			budgets = append(budgets, v)
		}
	}
	if req.BudgetMax == 0 && len(budgets) > 0 {
		req.BudgetMax = budgets[0]
	}

	if m := nameRegex.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		req.CustomerName = cleanName(m[1])
	}
	return req
}

func findAmounts(s string) []amount {
	var out []amount
	for _, idx := range amountRegex.FindAllStringSubmatchIndex(s, -1) {
		v, err := strconv.ParseFloat(s[idx[2]:idx[3]], 64)
		if err != nil {
			continue
		}
		a := amount{value: v, start: idx[0], end: idx[1]}
		if idx[4] >= 0 {
			a.unit = s[idx[4]:idx[5]]
			if _, ok := multipliers[a.unit]; !ok && !bedroomWords[a.unit] {
				// Not a unit, so the word is not part of the amount
				a.unit = ""
				a.end = idx[3]
			}
		}
		out = append(out, a)
	}
	return out
}

// money converts an amount to a currency value, 0 if it does not read as one
func money(a amount, fallbackUnit string) float64 {
	unit := a.unit
	if unit == "" {
		unit = fallbackUnit
	}
	if mult, ok := multipliers[unit]; ok {
		return a.value * mult
	}
	if unit == "" && a.value >= minBareBudget {
		return a.value
	}
	return 0
}

func normalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		}
		return r
	}, s)
}

func cleanName(raw string) string {
	var words []string
	for _, w := range strings.Fields(raw) {
		if nameStopWords[strings.ToLower(w)] {
			break
		}
		r := []rune(w)
		words = append(words, strings.ToUpper(string(r[0]))+string(r[1:]))
	}
	return strings.Join(words, " ")
}
