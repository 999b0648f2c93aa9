package cmd

import (
	"os"

	"gopkg.in/yaml.v3"
)

const tuningsFilepath string = "tunings.yaml"

// Define struct for YAML
type TuningsConfig struct {
	Tunings []Tuning `yaml:"tunings"`
	Version string   `yaml:"version"`
}

type Tuning struct {
	Name           string `yaml:"name"`
	HotThreshold   uint64 `yaml:"hot_threshold"`
	CacheMaxBlocks int    `yaml:"cache_max_blocks"`
}

// LoadTunings parses a tuning profiles file.
func LoadTunings(path string) (*TuningsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg TuningsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetTuning looks up a named profile in the default tunings file.
func GetTuning(name string) (uint64, int, bool) {
	cfg, err := LoadTunings(tuningsFilepath)
	if err != nil {
		panic(err)
	}

	for _, tuning := range cfg.Tunings {
		if tuning.Name == name {
			return tuning.HotThreshold, tuning.CacheMaxBlocks, true
		}
	}
	return 0, 0, false
}
