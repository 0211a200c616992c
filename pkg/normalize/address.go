package normalize

import "strings"

// USPS whole-word substitutions: spelled-out street suffixes and compass
// directions to their standard abbreviations.
var streetAbbrev = map[string]string{
	"STREET":    "ST",
	"AVENUE":    "AVE",
	"BOULEVARD": "BLVD",
	"DRIVE":     "DR",
	"LANE":      "LN",
	"ROAD":      "RD",
	"COURT":     "CT",
	"CIRCLE":    "CIR",
	"PLACE":     "PL",
	"TERRACE":   "TER",
	"PARKWAY":   "PKWY",
	"HIGHWAY":   "HWY",
	"SQUARE":    "SQ",
	"TRAIL":     "TRL",
	"EXPRESSWAY": "EXPY",

	"NORTH":     "N",
	"SOUTH":     "S",
	"EAST":      "E",
	"WEST":      "W",
	"NORTHEAST": "NE",
	"NORTHWEST": "NW",
	"SOUTHEAST": "SE",
	"SOUTHWEST": "SW",
}

// Secondary-unit designators. The designator and the token following it are
// both dropped from the normalized form.
var unitTokens = map[string]struct{}{
	"APT":       {},
	"APARTMENT": {},
	"UNIT":      {},
	"SUITE":     {},
	"STE":       {},
	"BLDG":      {},
	"BUILDING":  {},
	"FL":        {},
	"FLOOR":     {},
	"RM":        {},
	"ROOM":      {},
	"LOT":       {},
}

// Address canonicalizes a street address line: uppercase, USPS suffix and
// direction abbreviations by whole-word substitution, unit/apartment tokens
// stripped together with their following token, whitespace collapsed.
func Address(raw string) string {
	addr := strings.ToUpper(strings.TrimSpace(raw))
	if addr == "" {
		return ""
	}

	fields := strings.Fields(addr)
	out := make([]string, 0, len(fields))
	skipNext := false
	for _, f := range fields {
		if skipNext {
			skipNext = false
			continue
		}
		token := strings.Trim(f, ".,")
		if token == "" {
			continue
		}
		if strings.HasPrefix(token, "#") {
			continue
		}
		if _, ok := unitTokens[token]; ok {
			skipNext = true
			continue
		}
		if abbr, ok := streetAbbrev[token]; ok {
			token = abbr
		}
		out = append(out, token)
	}

	return strings.Join(out, " ")
}
