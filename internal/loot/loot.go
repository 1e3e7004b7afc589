// ABOUTME: Static class and dungeon loot-table configuration
// ABOUTME: Loads YAML files and groups loot by drop location for client pickers

package loot

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SharedLootLocation is the synthetic location that collects items dropping
// in more than one place.
const SharedLootLocation = "Shared Loot"

// CharacterClass names a playable class and the roles it may fill.
type CharacterClass struct {
	ClassName string   `yaml:"className" json:"className"`
	Roles     []string `yaml:"roles" json:"roles"`
}

// Item is one loot-table entry with the locations it drops at.
type Item struct {
	ItemName  string   `yaml:"itemName" json:"itemName"`
	Locations []string `yaml:"locations" json:"locations"`
}

// DungeonLoot is the raw loot table for one dungeon. Locations lists the
// encounter order, which drives the grouping order in Locations().
type DungeonLoot struct {
	DungeonKey string   `yaml:"dungeonKey" json:"dungeonKey"`
	Locations  []string `yaml:"locations" json:"locations"`
	Loot       []Item   `yaml:"loot" json:"loot"`
}

// LootLocation is one location with its item names, used for the grouped
// per-location view.
type LootLocation struct {
	LocationName string   `json:"locationName"`
	Loot         []string `json:"loot"`
}

// Config holds the loaded static configuration. It is read-only after Load.
type Config struct {
	classes  []CharacterClass
	dungeons map[string]*DungeonLoot
	grouped  map[string][]LootLocation
}

type classesFile struct {
	Classes []CharacterClass `yaml:"classes"`
}

type lootFile struct {
	Dungeons []DungeonLoot `yaml:"dungeons"`
}

// Load reads the class and loot configuration files. Item lists are sorted
// by name and the per-location grouping is computed up front.
func Load(classesPath, lootPath string) (*Config, error) {
	classesData, err := os.ReadFile(classesPath)
	if err != nil {
		return nil, fmt.Errorf("reading classes file: %w", err)
	}

	var cf classesFile
	if err := yaml.Unmarshal(classesData, &cf); err != nil {
		return nil, fmt.Errorf("parsing classes file: %w", err)
	}

	lootData, err := os.ReadFile(lootPath)
	if err != nil {
		return nil, fmt.Errorf("reading loot file: %w", err)
	}

	var lf lootFile
	if err := yaml.Unmarshal(lootData, &lf); err != nil {
		return nil, fmt.Errorf("parsing loot file: %w", err)
	}

	cfg := &Config{
		classes:  cf.Classes,
		dungeons: make(map[string]*DungeonLoot, len(lf.Dungeons)),
		grouped:  make(map[string][]LootLocation, len(lf.Dungeons)),
	}

	for i := range lf.Dungeons {
		dungeon := &lf.Dungeons[i]
		if dungeon.DungeonKey == "" {
			return nil, fmt.Errorf("dungeon %d has no dungeonKey", i)
		}
		if _, exists := cfg.dungeons[dungeon.DungeonKey]; exists {
			return nil, fmt.Errorf("duplicate dungeonKey %q", dungeon.DungeonKey)
		}

		sort.Slice(dungeon.Loot, func(a, b int) bool {
			return dungeon.Loot[a].ItemName < dungeon.Loot[b].ItemName
		})

		cfg.dungeons[dungeon.DungeonKey] = dungeon
		cfg.grouped[dungeon.DungeonKey] = groupByLocation(dungeon)
	}

	return cfg, nil
}

// groupByLocation buckets a dungeon's items by drop location. Items with
// more than one drop location go into the shared bucket. Groups follow the
// dungeon's encounter order, with the shared bucket last.
func groupByLocation(dungeon *DungeonLoot) []LootLocation {
	buckets := make(map[string][]string)
	for _, item := range dungeon.Loot {
		location := SharedLootLocation
		if len(item.Locations) == 1 {
			location = item.Locations[0]
		}
		buckets[location] = append(buckets[location], item.ItemName)
	}

	order := func(location string) int {
		for i, name := range dungeon.Locations {
			if name == location {
				return i
			}
		}
		return len(dungeon.Locations) // shared and unlisted locations sort last
	}

	locations := make([]LootLocation, 0, len(buckets))
	for name, items := range buckets {
		sort.Strings(items)
		locations = append(locations, LootLocation{LocationName: name, Loot: items})
	}
	sort.Slice(locations, func(a, b int) bool {
		oa, ob := order(locations[a].LocationName), order(locations[b].LocationName)
		if oa != ob {
			return oa < ob
		}
		return locations[a].LocationName < locations[b].LocationName
	})

	return locations
}

// Classes returns the configured character classes.
func (c *Config) Classes() []CharacterClass {
	return c.classes
}

// LootTable returns the raw loot table for a dungeon, or nil if the key is
// unknown.
func (c *Config) LootTable(dungeonKey string) *DungeonLoot {
	return c.dungeons[dungeonKey]
}

// Locations returns the per-location loot grouping for a dungeon, or nil if
// the key is unknown.
func (c *Config) Locations(dungeonKey string) []LootLocation {
	return c.grouped[dungeonKey]
}
