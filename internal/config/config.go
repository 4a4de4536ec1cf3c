package config

import (
	"encoding/json"
	"fmt"
	"sync"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for the volume data gateway.
type Config struct {
	DataRoot    DataRootConfig    `json:"data_root"`
	Index       IndexConfig       `json:"index"`
	MountHealth MountHealthConfig `json:"mount_health"`
	Cache       CacheConfig       `json:"cache"`
	Integrity   IntegrityConfig   `json:"integrity"`
	Server      ServerConfig      `json:"server"`
	LLM         LLMConfig         `json:"llm,omitempty"`
	mu          sync.RWMutex
}

// DataRootConfig maps the container root the index's paths are encoded
// against to the host root actually mounted where this process runs,
// plus the set of mount roots Mount Health polls for liveness.
type DataRootConfig struct {
	ContainerRoot string              `json:"container_root"`
	HostRoot      string              `json:"host_root"`
	MountRoots    FlexibleStringSlice `json:"mount_roots,omitempty"`
}

// IndexConfig points at the external metadata index.
type IndexConfig struct {
	Endpoint       string `json:"endpoint,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// MountHealthConfig controls the liveness checker for C4.
type MountHealthConfig struct {
	Enabled        bool `json:"enabled"`
	TimeoutSeconds int  `json:"timeout_seconds,omitempty"`
	Retries        int  `json:"retries,omitempty"`
}

// CacheConfig sizes and TTLs the two query caches.
type CacheConfig struct {
	SearchSize      int `json:"search_size,omitempty"`
	SearchTTLSec    int `json:"search_ttl_seconds,omitempty"`
	FacetsSize      int `json:"facets_size,omitempty"`
	FacetsTTLSec    int `json:"facets_ttl_seconds,omitempty"`
}

// IntegrityConfig carries policy defaults for the Integrity Engine; callers
// may still override tolerance per request.
type IntegrityConfig struct {
	DefaultTolerance        float64 `json:"default_tolerance,omitempty"`
	SimilarityThreshold     float64 `json:"similarity_threshold,omitempty"`
	EnforceCrossSurveyCheck bool    `json:"enforce_cross_survey_check,omitempty"`
}

// ServerConfig bounds the Tool Server's resource usage.
type ServerConfig struct {
	RawDataElementCap int `json:"raw_data_element_cap,omitempty"`
	MaxImageBytes     int `json:"max_image_bytes,omitempty"`
	WorkerPoolSize    int `json:"worker_pool_size,omitempty"`
}

// LLMConfig configures the chat proxy's driving LLM. Never consumed by the
// core tool server or agent manager.
type LLMConfig struct {
	Provider          string `json:"provider,omitempty"` // "anthropic" or "openai"
	Model             string `json:"model,omitempty"`
	AnthropicAPIKey   string `json:"-"`
	AnthropicBaseURL  string `json:"anthropic_base_url,omitempty"`
	OpenAIAPIKey      string `json:"-"`
	OpenAIBaseURL     string `json:"openai_base_url,omitempty"`
	MaxToolIterations int    `json:"max_tool_iterations,omitempty"`
	InjectPriorImages bool   `json:"inject_prior_images,omitempty"`
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DataRoot = src.DataRoot
	c.Index = src.Index
	c.MountHealth = src.MountHealth
	c.Cache = src.Cache
	c.Integrity = src.Integrity
	c.Server = src.Server
	c.LLM = src.LLM
}
