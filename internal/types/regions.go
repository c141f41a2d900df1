package types

import "strings"

// GlobalCoverageTag marks an NGO that operates worldwide. It grants partial
// geographic credit against any region.
const GlobalCoverageTag = "global"

// RegionCountry extracts the country component of a normalized region key.
// Keys are comma-separated with the country code last ("Hatay,TR" → "TR").
// A key without a comma is treated as already being a country tag.
func RegionCountry(region string) string {
	idx := strings.LastIndex(region, ",")
	if idx < 0 {
		return strings.TrimSpace(region)
	}
	return strings.TrimSpace(region[idx+1:])
}

// IsCountryTag reports whether a coverage entry is a bare country tag
// rather than a full region key.
func IsCountryTag(entry string) bool {
	return entry != GlobalCoverageTag && !strings.Contains(entry, ",")
}
