package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegionCountry(t *testing.T) {
	tests := []struct {
		region   string
		expected string
	}{
		{"Hatay,TR", "TR"},
		{"Sindh,PK", "PK"},
		{"Karachi,Sindh,PK", "PK"},
		{"Attica, GR", "GR"},
		{"TR", "TR"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			assert.Equal(t, tt.expected, RegionCountry(tt.region))
		})
	}
}

func TestIsCountryTag(t *testing.T) {
	assert.True(t, IsCountryTag("TR"))
	assert.False(t, IsCountryTag("Hatay,TR"))
	assert.False(t, IsCountryTag(GlobalCoverageTag))
}
