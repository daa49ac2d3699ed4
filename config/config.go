// Package config reads the settings of all commands from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvURL                = "CONFLUENCE_URL"
	EnvUser               = "CONFLUENCE_USER"
	EnvTokenOrPass        = "CONFLUENCE_TOKEN_OR_PASS"
	EnvSpaceKey           = "CONFLUENCE_SPACE_KEY"
	EnvParentPageID       = "CONFLUENCE_PARENT_PAGE_ID"
	EnvInsecureSkipVerify = "CONFLUENCE_INSECURE_SKIP_VERIFY"
	EnvRootPagesOnly      = "CONFLUENCE_ROOT_PAGES_ONLY"
	EnvLogFile            = "CONTENTEXPORT_LOG_FILE"
	EnvMetricsFile        = "CONTENTEXPORT_METRICS_FILE"
	EnvEmbeddingEndpoint  = "EMBEDDING_ENDPOINT"
	EnvEmbeddingModel     = "EMBEDDING_MODEL"
)

const DefaultLogFile = "confluence_export_debug.log"

var ErrMissing = errors.New("missing required environment variables")

type Confluence struct {
	BaseURL            string
	User               string
	TokenOrPass        string
	SpaceKey           string
	ParentPageID       string
	InsecureSkipVerify bool
	RootPagesOnly      bool
}

type Embedding struct {
	Endpoint string
	Model    string
}

type Config struct {
	Confluence  Confluence
	Embedding   Embedding
	LogFile     string
	MetricsFile string
}

// Load reads the given .env files, a missing file is not an error, and then
// the environment. Variables already set in the environment win over the
// files.
func Load(files ...string) (*Config, error) {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from a lookup function. The Confluence settings
// are not validated here, commands that need them call Validate.
func FromEnv(getenv func(string) string) (*Config, error) {
	insecure, err := parseBool(getenv, EnvInsecureSkipVerify)
	if err != nil {
		return nil, err
	}
	rootOnly, err := parseBool(getenv, EnvRootPagesOnly)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Confluence: Confluence{
			BaseURL:            NormalizeBaseURL(getenv(EnvURL)),
			User:               strings.TrimSpace(getenv(EnvUser)),
			TokenOrPass:        getenv(EnvTokenOrPass),
			SpaceKey:           strings.ToUpper(strings.TrimSpace(getenv(EnvSpaceKey))),
			ParentPageID:       strings.TrimSpace(getenv(EnvParentPageID)),
			InsecureSkipVerify: insecure,
			RootPagesOnly:      rootOnly,
		},
		Embedding: Embedding{
			Endpoint: strings.TrimSpace(getenv(EnvEmbeddingEndpoint)),
			Model:    strings.TrimSpace(getenv(EnvEmbeddingModel)),
		},
		LogFile:     getenv(EnvLogFile),
		MetricsFile: getenv(EnvMetricsFile),
	}
	if cfg.LogFile == "" {
		cfg.LogFile = DefaultLogFile
	}
	return cfg, nil
}

// Validate reports every missing required Confluence setting at once.
func (c Confluence) Validate() error {
	var missing []string
	for _, kv := range []struct{ key, value string }{
		{EnvURL, c.BaseURL},
		{EnvUser, c.User},
		{EnvTokenOrPass, c.TokenOrPass},
		{EnvSpaceKey, c.SpaceKey},
	} {
		if kv.value == "" {
			missing = append(missing, kv.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s is not an absolute http(s) url: %q", EnvURL, c.BaseURL)
	}
	return nil
}

// NormalizeBaseURL trims trailing slashes and appends the /wiki context path
// that Atlassian cloud sites require.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	if strings.HasSuffix(strings.ToLower(u.Hostname()), ".atlassian.net") && !strings.HasSuffix(u.Path, "/wiki") {
		base += "/wiki"
	}
	return base
}

func parseBool(getenv func(string) string, key string) (bool, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
