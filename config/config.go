// Package config loads a cluster's static peer list and timing
// parameters from a YAML file, the way cmd/raftd's process bootstrap
// needs (grounded on the teacher's config.go functional-options layer,
// generalized to a file-backed source since the teacher's is entirely
// in-process options).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Peer is one cluster member as listed in the config file.
type Peer struct {
	ID      uint64 `yaml:"id"`
	Address string `yaml:"address"`
}

// File is the on-disk shape of a cluster's bootstrap configuration.
type File struct {
	Self              uint64        `yaml:"self"`
	Peers             []Peer        `yaml:"peers"`
	ElectionTimeout   time.Duration `yaml:"election_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	PreVoteGuard      bool          `yaml:"pre_vote_guard"`
}

// Load reads and parses a cluster config file.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if f.Self == 0 {
		return File{}, fmt.Errorf("config: %s: self id must be set", path)
	}
	found := false
	for _, p := range f.Peers {
		if p.ID == f.Self {
			found = true
			break
		}
	}
	if !found {
		return File{}, fmt.Errorf("config: %s: self id %d not present in peers", path, f.Self)
	}
	return f, nil
}
