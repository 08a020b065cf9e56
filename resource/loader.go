package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ResourceLoader holds the move, species and preset team catalogs. It starts
// from the built-in tables; Load merges JSON overrides from DataPath by id.
// The catalogs are read-only once Load returns.
type ResourceLoader struct {
	DataPath string

	moves   map[int]*MoveDefinition
	species map[int]*CreatureDefinition
	teams   map[string]*TeamPreset
}

// NewLoader creates a ResourceLoader seeded with the built-in catalog.
// An empty dataPath disables file overrides.
func NewLoader(dataPath string) *ResourceLoader {
	rl := &ResourceLoader{
		DataPath: dataPath,
		moves:    make(map[int]*MoveDefinition, len(builtinMoves)),
		species:  make(map[int]*CreatureDefinition, len(builtinSpecies)),
		teams:    make(map[string]*TeamPreset, len(builtinTeams)),
	}
	for _, m := range builtinMoves {
		rl.moves[m.ID] = m
	}
	for _, s := range builtinSpecies {
		rl.species[s.ID] = s
	}
	for _, t := range builtinTeams {
		rl.teams[t.ID] = t
	}
	return rl
}

// Load reads moves.json, species.json and teams.json when present, then
// validates the merged catalog.
func (rl *ResourceLoader) Load() error {
	if rl.DataPath != "" {
		loaders := []func() error{
			rl.loadMoves,
			rl.loadSpecies,
			rl.loadTeams,
		}
		for _, fn := range loaders {
			if err := fn(); err != nil {
				return err
			}
		}
	}
	return rl.validate()
}

func (rl *ResourceLoader) path(file string) string {
	return filepath.Join(rl.DataPath, file)
}

// loadJSONArray returns (nil, nil) when the file does not exist.
func loadJSONArray[T any](path string) ([]*T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", path, err)
	}
	var arr []*T
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("resource: parse %s: %w", path, err)
	}
	return arr, nil
}

func (rl *ResourceLoader) loadMoves() error {
	arr, err := loadJSONArray[MoveDefinition](rl.path("moves.json"))
	if err != nil {
		return err
	}
	for _, m := range arr {
		if m != nil {
			rl.moves[m.ID] = m
		}
	}
	return nil
}

func (rl *ResourceLoader) loadSpecies() error {
	arr, err := loadJSONArray[CreatureDefinition](rl.path("species.json"))
	if err != nil {
		return err
	}
	for _, s := range arr {
		if s != nil {
			rl.species[s.ID] = s
		}
	}
	return nil
}

func (rl *ResourceLoader) loadTeams() error {
	arr, err := loadJSONArray[TeamPreset](rl.path("teams.json"))
	if err != nil {
		return err
	}
	for _, t := range arr {
		if t != nil {
			rl.teams[t.ID] = t
		}
	}
	return nil
}

func (rl *ResourceLoader) validate() error {
	for _, m := range rl.moves {
		if err := m.validate(); err != nil {
			return err
		}
	}
	for _, s := range rl.species {
		if err := s.validate(rl.moves); err != nil {
			return err
		}
	}
	for _, t := range rl.teams {
		if t.ID == "" || len(t.Species) == 0 || len(t.Species) > 6 {
			return fmt.Errorf("resource: team %q: needs 1..6 species", t.ID)
		}
		for _, id := range t.Species {
			if _, ok := rl.species[id]; !ok {
				return fmt.Errorf("resource: team %q: unknown species %d", t.ID, id)
			}
		}
	}
	return nil
}

// MoveByID returns the move with the given id, or nil.
func (rl *ResourceLoader) MoveByID(id int) *MoveDefinition { return rl.moves[id] }

// SpeciesByID returns the species with the given id, or nil.
func (rl *ResourceLoader) SpeciesByID(id int) *CreatureDefinition { return rl.species[id] }

// Team returns the preset with the given id, or nil.
func (rl *ResourceLoader) Team(id string) *TeamPreset { return rl.teams[id] }

// Moves returns all moves ordered by id.
func (rl *ResourceLoader) Moves() []*MoveDefinition {
	out := make([]*MoveDefinition, 0, len(rl.moves))
	for _, m := range rl.moves {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Species returns all species ordered by id.
func (rl *ResourceLoader) Species() []*CreatureDefinition {
	out := make([]*CreatureDefinition, 0, len(rl.species))
	for _, s := range rl.species {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Teams returns all presets ordered by id.
func (rl *ResourceLoader) Teams() []*TeamPreset {
	out := make([]*TeamPreset, 0, len(rl.teams))
	for _, t := range rl.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
