package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ngos.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSeedFile(t *testing.T) {
	path := writeSeedFile(t, `[
        {
            "id": "ngo-1",
            "name": "Flood Relief Intl",
            "aid_types": ["flood"],
            "coverage_regions": ["Sindh,PK", "PK"],
            "capacity_weight": 0.8,
            "contact_email": "ops@floodrelief.example.org",
            "active": true
        }
    ]`)

	ngos, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, ngos, 1)
	assert.Equal(t, "ngo-1", ngos[0].ID)
	assert.Equal(t, []types.DisasterType{types.DisasterFlood}, ngos[0].AidTypes)
	assert.True(t, ngos[0].Active)
}

func TestLoadSeedFileRejectsMissingID(t *testing.T) {
	path := writeSeedFile(t, `[{"name": "No ID Org"}]`)
	_, err := LoadSeedFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no id")
}

func TestLoadSeedFileMissingFile(t *testing.T) {
	_, err := LoadSeedFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadSeedFileBadJSON(t *testing.T) {
	path := writeSeedFile(t, `{not json`)
	_, err := LoadSeedFile(path)
	require.Error(t, err)
}
