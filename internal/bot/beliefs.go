package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"scoremarket/pkg/types"
)

// BeliefStore loads the bot's target-probability files, re-reading them on
// every tick so an operator can hot-reload beliefs without restarting the
// process (spec's description of the bot reading belief vectors from
// files, supplemented per SPEC_FULL.md §C.5).
type BeliefStore struct {
	dir string
}

// NewBeliefStore points at the directory holding team_ms.json/player_ms.json.
func NewBeliefStore(dir string) *BeliefStore {
	return &BeliefStore{dir: dir}
}

// LoadTeamBeliefs reads data/team_ms.json: market -> normalized probability vector.
func (b *BeliefStore) LoadTeamBeliefs() (map[types.MarketID][]float64, error) {
	var out map[types.MarketID][]float64
	if err := readJSON(filepath.Join(b.dir, "team_ms.json"), &out); err != nil {
		return nil, fmt.Errorf("load team beliefs: %w", err)
	}
	return out, nil
}

// LoadPlayerBeliefs reads data/player_ms.json: market -> target probability in [0,1].
func (b *BeliefStore) LoadPlayerBeliefs() (map[types.MarketID]float64, error) {
	var out map[types.MarketID]float64
	if err := readJSON(filepath.Join(b.dir, "player_ms.json"), &out); err != nil {
		return nil, fmt.Errorf("load player beliefs: %w", err)
	}
	return out, nil
}

func readJSON(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
