// Package secrets resolves provider credentials for LLM agents. A lookup
// walks, in order: the named profile in the secrets file, the OS keyring,
// the conventional environment variable, and the file's default profile.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/zalando/go-keyring"
)

// Service is the keyring service name. Entries are keyed
// "<provider>/<profile>".
const Service = "ai-arena"

// defaultProfile is consulted when no profile is named and again as the
// last stop of the chain.
const defaultProfile = "default"

var envAPIKeys = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

var envBaseURLs = map[string]string{
	"ollama": "OLLAMA_BASE_URL",
}

// profile is one [secrets.<provider>.<name>] table.
type profile struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type secretsFile struct {
	Secrets map[string]map[string]profile `toml:"secrets"`
}

// Resolver answers credential lookups for agent construction.
type Resolver struct {
	path     string
	profiles map[string]map[string]profile
	log      zerolog.Logger

	// keyringGet is swapped for a fake in tests.
	keyringGet func(service, key string) (string, error)
}

// DefaultPath returns the conventional secrets file location,
// $XDG_CONFIG_HOME/ai_arena/secrets.toml on Linux.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("secrets: locate config dir: %w", err)
	}
	return filepath.Join(dir, "ai_arena", "secrets.toml"), nil
}

// Load parses the secrets file at path (empty means DefaultPath). A missing
// file is not an error: resolution falls through to the keyring and the
// environment.
func Load(path string, log zerolog.Logger) (*Resolver, error) {
	r := &Resolver{
		path:       path,
		profiles:   map[string]map[string]profile{},
		log:        log,
		keyringGet: keyring.Get,
	}
	if r.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		r.path = p
	}

	info, err := os.Stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("secrets: stat %s: %w", r.path, err)
	}
	if info.Mode().Perm()&0o007 != 0 {
		log.Warn().Str("path", r.path).Msg("secrets file is world-readable, fix with chmod 600")
	}

	var file secretsFile
	if _, err := toml.DecodeFile(r.path, &file); err != nil {
		return nil, fmt.Errorf("secrets: parse %s: %w", r.path, err)
	}
	if file.Secrets != nil {
		r.profiles = file.Secrets
	}
	return r, nil
}

// APIKey resolves a provider API key. An empty profileName walks the
// default chain.
func (r *Resolver) APIKey(provider, profileName string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))

	v := r.resolve(provider, profileName, func(p profile) string { return p.APIKey }, envAPIKeys[provider])
	if v == "" {
		return "", fmt.Errorf("secrets: no API key found for provider %s", provider)
	}
	return v, nil
}

// BaseURL resolves an endpoint override. Empty with nil error means the
// provider's built-in default applies.
func (r *Resolver) BaseURL(provider, profileName string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))

	return r.resolve(provider, profileName, func(p profile) string { return p.BaseURL }, envBaseURLs[provider]), nil
}

func (r *Resolver) resolve(provider, profileName string, field func(profile) string, envName string) string {
	name := strings.TrimSpace(profileName)
	if name == "" {
		name = defaultProfile
	}

	// Named profile in the secrets file.
	if p, ok := r.profiles[provider][name]; ok {
		if v := field(p); v != "" {
			return v
		}
	}

	// OS keyring. Unavailable backends and missing entries are skipped
	// silently so headless hosts work without one.
	if v, err := r.keyringGet(Service, provider+"/"+name); err == nil && v != "" {
		return v
	}

	// Environment.
	if envName != "" {
		if v := os.Getenv(envName); v != "" {
			return v
		}
	}

	// Default profile as the last stop.
	if name != defaultProfile {
		if p, ok := r.profiles[provider][defaultProfile]; ok {
			if v := field(p); v != "" {
				return v
			}
		}
	}

	return ""
}
