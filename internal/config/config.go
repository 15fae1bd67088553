package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jxitc/info-agent-sub000/pkg/memory/retrieve"
)

// Config is the full runtime configuration, loaded from an optional YAML
// file plus INFOAGENT_* environment overrides.
type Config struct {
	Backend string `mapstructure:"backend"`

	SQLite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`

	Postgres struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"postgres"`

	Mongo struct {
		URI        string `mapstructure:"uri"`
		Database   string `mapstructure:"database"`
		Collection string `mapstructure:"collection"`
	} `mapstructure:"mongo"`

	Neo4j struct {
		Enabled  bool   `mapstructure:"enabled"`
		URI      string `mapstructure:"uri"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		Database string `mapstructure:"database"`
	} `mapstructure:"neo4j"`

	Embed struct {
		Provider string `mapstructure:"provider"`
		Model    string `mapstructure:"model"`
	} `mapstructure:"embed"`

	Retrieve struct {
		RRFK                float64       `mapstructure:"rrf_k"`
		HalfLife            time.Duration `mapstructure:"half_life"`
		SourceTimeout       time.Duration `mapstructure:"source_timeout"`
		MaxHops             int           `mapstructure:"max_hops"`
		SeedLimit           int           `mapstructure:"seed_limit"`
		PreviewLength       int           `mapstructure:"preview_length"`
		RelationshipPhrases []string      `mapstructure:"relationship_phrases"`
		CacheSize           int           `mapstructure:"cache_size"`
		CacheTTL            time.Duration `mapstructure:"cache_ttl"`

		Weights struct {
			Semantic     float64 `mapstructure:"semantic"`
			ExactMatch   float64 `mapstructure:"exact_match"`
			Recency      float64 `mapstructure:"recency"`
			Centrality   float64 `mapstructure:"centrality"`
			Relationship float64 `mapstructure:"relationship"`
			Entity       float64 `mapstructure:"entity"`
			Reliability  float64 `mapstructure:"reliability"`
		} `mapstructure:"weights"`
	} `mapstructure:"retrieve"`
}

// Load reads configuration from path (optional; the default search looks
// for infoagent.yaml in the working directory) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("INFOAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("infoagent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.infoagent")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "sqlite")
	v.SetDefault("sqlite.path", "infoagent.db")
	v.SetDefault("mongo.database", "infoagent")
	v.SetDefault("mongo.collection", "memories")
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("retrieve.rrf_k", retrieve.DefaultRRFK)
	v.SetDefault("retrieve.half_life", 30*24*time.Hour)
	v.SetDefault("retrieve.source_timeout", 3*time.Second)
	v.SetDefault("retrieve.max_hops", 2)
	v.SetDefault("retrieve.seed_limit", 5)
	v.SetDefault("retrieve.preview_length", 100)
	v.SetDefault("retrieve.cache_size", 0)
	v.SetDefault("retrieve.cache_ttl", time.Minute)
}

// EngineOptions translates the configuration into engine options. Zero
// weight blocks keep the engine defaults.
func (c *Config) EngineOptions() retrieve.Options {
	opts := retrieve.Options{
		RRFK:                c.Retrieve.RRFK,
		HalfLife:            c.Retrieve.HalfLife,
		SourceTimeout:       c.Retrieve.SourceTimeout,
		MaxHops:             c.Retrieve.MaxHops,
		SeedLimit:           c.Retrieve.SeedLimit,
		PreviewLength:       c.Retrieve.PreviewLength,
		RelationshipPhrases: c.Retrieve.RelationshipPhrases,
		CacheSize:           c.Retrieve.CacheSize,
		CacheTTL:            c.Retrieve.CacheTTL,
	}
	w := c.Retrieve.Weights
	opts.Weights = retrieve.ConfidenceWeights{
		Semantic:     w.Semantic,
		ExactMatch:   w.ExactMatch,
		Recency:      w.Recency,
		Centrality:   w.Centrality,
		Relationship: w.Relationship,
		Entity:       w.Entity,
		Reliability:  w.Reliability,
	}
	return opts
}
