package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DatabaseURL string
	Port        string
	SchemaFile  string
	LogLevel    slog.Level
	Search      SearchPrefs
}

// SearchPrefs is the [search] table of the preference file.
type SearchPrefs struct {
	ActiveOnly    bool `toml:"active_only"`
	MinTermLength int  `toml:"min_term_length"`
	MaxTerms      int  `toml:"max_terms"`
	DayFirst      bool `toml:"day_first"`
	YearFirst     bool `toml:"year_first"`
}

type prefsFile struct {
	Search SearchPrefs `toml:"search"`
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "file:collection.db"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	schemaFile := os.Getenv("SCHEMA_FILE")
	if schemaFile == "" {
		schemaFile = "schema.yaml"
	}

	var level slog.Level
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}

	prefs, err := loadPrefs(os.Getenv("PREFS_FILE"))
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL: dbURL,
		Port:        port,
		SchemaFile:  schemaFile,
		LogLevel:    level,
		Search:      prefs,
	}, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}

// loadPrefs reads the optional TOML preference file and applies the
// SEARCH_* environment overrides on top.
func loadPrefs(path string) (SearchPrefs, error) {
	doc := prefsFile{Search: SearchPrefs{MinTermLength: 4, MaxTerms: 3}}
	if path != "" {
		if _, err := toml.DecodeFile(path, &doc); err != nil {
			return SearchPrefs{}, fmt.Errorf("read preferences %s: %w", path, err)
		}
	}
	p := doc.Search

	var err error
	if p.ActiveOnly, err = envBool("SEARCH_ACTIVE_ONLY", p.ActiveOnly); err != nil {
		return SearchPrefs{}, err
	}
	if p.DayFirst, err = envBool("SEARCH_DAY_FIRST", p.DayFirst); err != nil {
		return SearchPrefs{}, err
	}
	if p.YearFirst, err = envBool("SEARCH_YEAR_FIRST", p.YearFirst); err != nil {
		return SearchPrefs{}, err
	}
	if p.MinTermLength, err = envInt("SEARCH_MIN_TERM_LENGTH", p.MinTermLength); err != nil {
		return SearchPrefs{}, err
	}
	if p.MaxTerms, err = envInt("SEARCH_MAX_TERMS", p.MaxTerms); err != nil {
		return SearchPrefs{}, err
	}
	if p.MinTermLength < 0 || p.MaxTerms < 1 {
		return SearchPrefs{}, fmt.Errorf("invalid search preferences: min_term_length=%d max_terms=%d", p.MinTermLength, p.MaxTerms)
	}
	return p, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
