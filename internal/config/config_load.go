package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DataRoot: DataRootConfig{
			ContainerRoot: "/data/vds",
			HostRoot:      "/data/vds",
			MountRoots:    FlexibleStringSlice{"/data/vds"},
		},
		Index: IndexConfig{
			TimeoutSeconds: 5,
		},
		MountHealth: MountHealthConfig{
			Enabled:        true,
			TimeoutSeconds: 10,
			Retries:        3,
		},
		Cache: CacheConfig{
			SearchSize:   500,
			SearchTTLSec: 300,
			FacetsSize:   50,
			FacetsTTLSec: 900,
		},
		Integrity: IntegrityConfig{
			DefaultTolerance:    0.05,
			SimilarityThreshold: 0.82,
		},
		Server: ServerConfig{
			RawDataElementCap: 100000,
			MaxImageBytes:     800 * 1024,
			WorkerPoolSize:    4,
		},
		LLM: LLMConfig{
			Provider:          "anthropic",
			Model:             "claude-sonnet-4-5-20250929",
			MaxToolIterations: 10,
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config. Env vars take
// precedence over file values, and are the only source for secrets.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("VDSGW_ANTHROPIC_API_KEY", &c.LLM.AnthropicAPIKey)
	envStr("VDSGW_ANTHROPIC_BASE_URL", &c.LLM.AnthropicBaseURL)
	envStr("VDSGW_OPENAI_API_KEY", &c.LLM.OpenAIAPIKey)
	envStr("VDSGW_OPENAI_BASE_URL", &c.LLM.OpenAIBaseURL)
	envStr("VDSGW_LLM_PROVIDER", &c.LLM.Provider)
	envStr("VDSGW_LLM_MODEL", &c.LLM.Model)

	envStr("VDSGW_INDEX_ENDPOINT", &c.Index.Endpoint)
	envStr("VDSGW_DATA_ROOT_HOST", &c.DataRoot.HostRoot)
	envStr("VDSGW_DATA_ROOT_CONTAINER", &c.DataRoot.ContainerRoot)

	if v := os.Getenv("VDSGW_MOUNT_HEALTH_ENABLED"); v != "" {
		c.MountHealth.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("VDSGW_MOUNT_HEALTH_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MountHealth.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("VDSGW_RAW_DATA_ELEMENT_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.RawDataElementCap = n
		}
	}
}

// Save writes the config to a JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Hash returns a SHA-256 hash of the config for optimistic concurrency.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

// ApplyEnvOverrides re-applies environment variable overrides onto the
// config. Call this after a reload to restore runtime secrets from env vars.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnvOverrides()
}

// TranslatePath rewrites a path the index returned (encoded against the
// container root) to the root actually mounted on this host.
func (c *Config) TranslatePath(p string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.DataRoot.ContainerRoot == "" || c.DataRoot.HostRoot == "" {
		return p
	}
	if len(p) >= len(c.DataRoot.ContainerRoot) && p[:len(c.DataRoot.ContainerRoot)] == c.DataRoot.ContainerRoot {
		return c.DataRoot.HostRoot + p[len(c.DataRoot.ContainerRoot):]
	}
	return p
}
