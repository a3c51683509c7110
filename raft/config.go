package raft

import "time"

// Config holds the two timing knobs the protocol itself needs. Everything
// else (cluster membership, node id) is supplied directly to New.
type Config struct {
	ElectionTimeout   time.Duration
	HeartbeatInterval time.Duration

	// PreVoteGuard, when true, makes a node ignore RequestVote RPCs that
	// arrive within ElectionTimeout of its last leader contact. This
	// resists a partitioned-then-rejoining node disrupting a healthy
	// leader by forcing pointless re-elections.
	PreVoteGuard bool
}

func defaultConfig() Config {
	return Config{
		ElectionTimeout:   100 * time.Millisecond,
		HeartbeatInterval: 10 * time.Millisecond,
	}
}

// Option configures a Machine at construction time.
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }

// WithElectionTimeout overrides how long a Candidate or Follower waits
// without hearing from a leader before starting a new election.
func WithElectionTimeout(d time.Duration) Option {
	return optionFunc(func(c *Config) { c.ElectionTimeout = d })
}

// WithHeartbeatInterval overrides how often a Leader sends an empty
// AppendEntries to keep followers from timing out.
func WithHeartbeatInterval(d time.Duration) Option {
	return optionFunc(func(c *Config) { c.HeartbeatInterval = d })
}

// WithPreVoteGuard enables disruption resistance; see Config.PreVoteGuard.
func WithPreVoteGuard() Option {
	return optionFunc(func(c *Config) { c.PreVoteGuard = true })
}

func newConfig(opts ...Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	return cfg
}
