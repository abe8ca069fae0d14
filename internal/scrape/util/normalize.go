package util

import (
	"strings"

	"jobscout-engine/internal/domain"
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// stateAbbrev maps full US state names (lowercased) to postal codes.
var stateAbbrev = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY", "district of columbia": "DC",
}

// NormalizeLocation maps free-text location strings to "City, ST" or "Remote".
// Anything it cannot confidently normalize passes through unchanged: showing
// a raw string beats guessing wrong.
func NormalizeLocation(raw string) string {
	loc := CleanText(raw)
	if loc == "" {
		return "Unknown"
	}

	if strings.Contains(strings.ToLower(loc), "remote") {
		return "Remote"
	}

	parts := strings.Split(loc, ",")
	if len(parts) < 2 {
		return loc
	}

	city := CleanText(parts[0])
	region := CleanText(parts[1])
	if city == "" || region == "" {
		return loc
	}

	// "City, XX" already in postal form
	if len(region) == 2 && isAlpha(region) {
		return city + ", " + strings.ToUpper(region)
	}

	// "City, Full State[, Country]"
	if abbr, ok := stateAbbrev[strings.ToLower(region)]; ok {
		return city + ", " + abbr
	}

	return loc
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return len(s) > 0
}

// InferWorkMode guesses the work arrangement from posting text.
func InferWorkMode(location, title, desc string) domain.WorkMode {
	blob := strings.ToLower(strings.Join([]string{location, title, desc}, " "))

	switch {
	case strings.Contains(blob, "remote"):
		return domain.WorkModeRemote
	case strings.Contains(blob, "hybrid"):
		return domain.WorkModeHybrid
	case strings.Contains(blob, "on-site") || strings.Contains(blob, "onsite") || strings.Contains(blob, "on site"):
		return domain.WorkModeOnsite
	default:
		return domain.WorkModeUnknown
	}
}
