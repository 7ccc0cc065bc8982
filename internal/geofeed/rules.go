// Package geofeed validates RFC 8805/9092 geofeed CSV files: every prefix must
// sit inside the allocated supernet and location columns must follow ISO 3166.
package geofeed

import (
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
)

// Supernet is the allocation every geofeed prefix must fall inside.
var Supernet = netip.MustParsePrefix("2a0f:1cc0::/29")

var (
	// ISO 3166-1 alpha-2, e.g. US, JP.
	countryCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)
	// ISO 3166-2, e.g. US-CA, JP-13.
	regionCodeRe = regexp.MustCompile(`^[A-Z]{2}-[A-Za-z0-9]{1,3}$`)
)

// Column limits and advisory thresholds.
const (
	MinColumns    = 2
	MaxColumns    = 4
	MaxCityLength = 64
)

// ParsePrefix parses a geofeed prefix column. A bare address is accepted as a
// host prefix. Prefixes with host bits set are rejected.
func ParsePrefix(s string) (netip.Prefix, error) {
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		if addr.Zone() != "" {
			return netip.Prefix{}, eris.Errorf("%s has a zone", s)
		}
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}

	p, err := netip.ParsePrefix(normalizeBits(s))
	if err != nil {
		return netip.Prefix{}, err
	}
	if p != p.Masked() {
		return netip.Prefix{}, eris.Errorf("%s has host bits set", s)
	}
	return p, nil
}

// normalizeBits strips leading zeros from an all-digit prefix length, so
// "2a0f:1cc0::/032" parses as /32. Anything else is returned unchanged.
func normalizeBits(s string) string {
	i := strings.LastIndexByte(s, '/')
	bits := s[i+1:]
	if len(bits) < 2 || bits[0] != '0' {
		return s
	}
	n, err := strconv.Atoi(bits)
	if err != nil {
		return s
	}
	return s[:i+1] + strconv.Itoa(n)
}

// InSupernet reports whether p is a subnet of Supernet. IPv4 prefixes never are.
func InSupernet(p netip.Prefix) bool {
	return p.Bits() >= Supernet.Bits() && Supernet.Contains(p.Addr())
}

// isAssignedCountry reports whether code is an ISO 3166-1 country or territory.
func isAssignedCountry(code string) bool {
	r, err := language.ParseRegion(code)
	if err != nil {
		return false
	}
	return r.IsCountry()
}

// rowChecker applies the row rules. It remembers prefixes already seen in
// the current file so duplicates can be flagged.
type rowChecker struct {
	seen map[netip.Prefix]int
}

func newRowChecker() *rowChecker {
	return &rowChecker{seen: make(map[netip.Prefix]int)}
}

// check validates one normalized row (comments skipped, trailing empty field
// dropped) and returns its findings in rule order.
func (c *rowChecker) check(line int, row []string) []Finding {
	var out []Finding
	errorf := func(rule Rule, format string, args ...any) {
		out = append(out, Finding{Severity: SeverityError, Rule: rule, Line: line, Message: fmt.Sprintf(format, args...)})
	}
	warnf := func(rule Rule, format string, args ...any) {
		out = append(out, Finding{Severity: SeverityWarning, Rule: rule, Line: line, Message: fmt.Sprintf(format, args...)})
	}

	if n := len(row); n < MinColumns || n > MaxColumns {
		errorf(RuleColumnCount, "Invalid column count (%d). Must be 2, 3, or 4.", n)
		return out
	}

	rawPrefix := strings.TrimSpace(row[0])
	prefix, err := ParsePrefix(rawPrefix)
	if err != nil {
		errorf(RuleIPPrefix, "Invalid IP prefix '%s'. Details: %v", rawPrefix, err)
		return out
	}
	if !InSupernet(prefix) {
		errorf(RuleContainment, "IP prefix '%s' is NOT within the allowed range %s.", rawPrefix, Supernet)
	}
	if first, ok := c.seen[prefix]; ok {
		warnf(RuleDuplicatePrefix, "IP prefix '%s' duplicates the entry on line %d.", rawPrefix, first)
	} else {
		c.seen[prefix] = line
	}

	country := strings.TrimSpace(row[1])
	countryOK := countryCodeRe.MatchString(country)
	switch {
	case !countryOK:
		errorf(RuleCountryCode, "Invalid country code format '%s'. Must be 2 uppercase letters (e.g., US, JP).", country)
	case !isAssignedCountry(country):
		warnf(RuleUnknownCountry, "Country code '%s' is not an assigned ISO 3166-1 country.", country)
	}

	region := column(row, 2)
	if region != "" {
		switch {
		case !regionCodeRe.MatchString(region):
			errorf(RuleRegionCode, "Invalid region code format '%s'. Must match ISO 3166-2 (e.g., US-CA, JP-13).", region)
		case countryOK && region[:2] != country:
			warnf(RuleRegionMismatch, "Region code '%s' does not belong to country '%s'.", region, country)
		}
	}

	if city := column(row, 3); city != "" {
		if utf8.RuneCountInString(city) > MaxCityLength {
			warnf(RuleCityLength, "City name '%s' seems very long. Is this correct?", city)
		}
		if region == "" {
			warnf(RuleCityWithoutRegion, "City '%s' is specified, but region (column 3) is empty. This is discouraged by RFC 8805/9092.", row[3])
		}
	}

	return out
}

// column returns the trimmed field at i, or "" when the row is shorter.
func column(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
