package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

// LoadSeedFile reads a JSON array of NGOs from path. Used to bootstrap the
// catalog at startup; entries without an id are rejected.
func LoadSeedFile(path string) ([]types.NGO, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ngo seed file %s: %w", path, err)
	}

	var ngos []types.NGO
	if err := json.Unmarshal(raw, &ngos); err != nil {
		return nil, fmt.Errorf("parse ngo seed file %s: %w", path, err)
	}

	for i, n := range ngos {
		if n.ID == "" {
			return nil, fmt.Errorf("ngo seed file %s: entry %d has no id", path, i)
		}
	}
	return ngos, nil
}
