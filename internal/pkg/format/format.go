// Package format renders prices, phone numbers and dates the way the clients display them.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormatPrice renders an amount in FCFA with space-grouped thousands, e.g. "1 500 FCFA".
func FormatPrice(price int64) string {
	sign := ""
	if price < 0 {
		sign = "-"
		price = -price
	}
	digits := strconv.FormatInt(price, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + " FCFA"
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone keeps the digits of an Ivorian number and prefixes the 225 country code.
func NormalizePhone(phone string) string {
	d := digitsOnly(phone)
	if strings.HasPrefix(d, "225") && len(d) == 13 {
		return d
	}
	if len(d) == 10 {
		return "225" + d
	}
	return d
}

// FormatPhoneNumber renders "+225 XX XXX XX XXX"; unknown shapes are returned unchanged.
func FormatPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}
	d := digitsOnly(phone)
	if strings.HasPrefix(d, "225") && len(d) == 13 {
		return fmt.Sprintf("+%s %s %s %s %s", d[0:3], d[3:5], d[5:8], d[8:10], d[10:])
	}
	if len(d) == 10 {
		return fmt.Sprintf("+225 %s %s %s %s", d[0:2], d[2:5], d[5:7], d[7:])
	}
	return phone
}

// ValidateIvorianPhone accepts 10 local digits or 225 followed by 10 digits.
func ValidateIvorianPhone(phone string) bool {
	d := digitsOnly(phone)
	if strings.HasPrefix(d, "225") {
		return len(d) == 13
	}
	return len(d) == 10
}

// FormatDate renders a French long date, e.g. "3 mars 2025".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
}
