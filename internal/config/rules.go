package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is the on-disk shape of RATING_RULES_FILE.
//
//	rating:
//	  delta: 0.5
//	  upper_bound: 10
//	  baseline: 5
//	roster:
//	  team_capacity: 5
//	  min_confirmed_per_team: 1
type Rules struct {
	Rating RatingConfig `yaml:"rating"`
	Roster RosterConfig `yaml:"roster"`
}

// LoadRules reads a YAML rules file. Keys missing from the file keep their defaults.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("error reading rules file: %w", err)
	}

	rules := Rules{Rating: DefaultRating(), Roster: DefaultRoster()}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("error parsing rules file: %w", err)
	}
	return rules, nil
}
