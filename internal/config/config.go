package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"jobscout-engine/internal/dedupe"
)

// Board is one hosted career page: boards.greenhouse.io/<slug> or
// api.lever.co/v0/postings/<slug>.
type Board struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

// Search is one saved query: which source to ask, for what, where.
type Search struct {
	Source   string `yaml:"source"`
	Terms    string `yaml:"terms"`
	Location string `yaml:"location"`
}

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
		Workers int    `yaml:"workers"`
	} `yaml:"app"`

	Searches []Search `yaml:"searches"`

	// Boards are company career pages scraped directly, keyed by the ATS
	// that hosts them.
	Boards struct {
		Greenhouse []Board `yaml:"greenhouse"`
		Lever      []Board `yaml:"lever"`
	} `yaml:"boards"`

	Limits struct {
		// OverridesPath points at an optional YAML/JSON document of
		// per-backend rate rules layered over the built-in budgets.
		OverridesPath string `yaml:"overrides_path"`
	} `yaml:"limits"`

	Dedupe dedupe.Thresholds `yaml:"dedupe"`

	Adzuna struct {
		Country  string `yaml:"country"`
		PageSize int    `yaml:"page_size"`
	} `yaml:"adzuna"`

	Email struct {
		Enabled          bool     `yaml:"enabled"`
		IMAPHost         string   `yaml:"imap_host"`
		IMAPPort         int      `yaml:"imap_port"`
		Username         string   `yaml:"username"`
		Mailbox          string   `yaml:"mailbox"`
		SearchSubjectAny []string `yaml:"search_subject_any"`
		MaxMessages      int      `yaml:"max_messages"`
	} `yaml:"email"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
