package devtools

import (
	"strconv"
	"strings"
)

// fudgeFactor is how many major versions away from a known domain set a
// browser may be and still use it.
const fudgeFactor = 5

// Domains is the set of DevTools protocol domains usable against a browser
// of a given major version. The zero Major means the no-op set.
type Domains struct {
	Major int
	Names []string
}

// NoOpDomains is used when a browser version matches no known set.
var NoOpDomains = Domains{}

// IsNoOp reports whether d is the fallback set.
func (d Domains) IsNoOp() bool {
	return d.Major == 0
}

// Has reports whether the named domain is available.
func (d Domains) Has(name string) bool {
	for _, n := range d.Names {
		if n == name {
			return true
		}
	}
	return false
}

var stableDomains = []string{
	"Browser", "DOM", "Emulation", "Fetch", "Input", "Log",
	"Network", "Page", "Runtime", "Security", "Target",
}

// legacyDomains predates Fetch interception being usable from the grid.
var legacyDomains = []string{
	"Browser", "DOM", "Emulation", "Input", "Log",
	"Network", "Page", "Runtime", "Security", "Target",
}

var knownDomains = []Domains{
	{Major: 85, Names: legacyDomains},
	{Major: 120, Names: stableDomains},
	{Major: 125, Names: stableDomains},
	{Major: 130, Names: stableDomains},
	{Major: 135, Names: stableDomains},
	{Major: 140, Names: stableDomains},
}

// MatchVersion returns the known domain set closest to the version hint,
// within fudgeFactor major versions. On a tie the older set wins. Hints the
// parser cannot read, or versions too far from any known set, yield
// NoOpDomains.
func MatchVersion(hint string) Domains {
	major, ok := parseMajor(hint)
	if !ok {
		return NoOpDomains
	}

	best := NoOpDomains
	bestDist := fudgeFactor + 1
	for _, d := range knownDomains {
		dist := d.Major - major
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best
}

// parseMajor reads the major version from hints such as "119",
// "119.0.6045.105" or "HeadlessChrome/119.0.6045.105".
func parseMajor(hint string) (int, bool) {
	hint = strings.TrimSpace(hint)
	if i := strings.LastIndex(hint, "/"); i >= 0 {
		hint = hint[i+1:]
	}
	end := 0
	for end < len(hint) && hint[end] >= '0' && hint[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(hint[:end])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
