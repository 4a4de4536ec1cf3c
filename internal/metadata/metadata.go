// Package metadata implements the Metadata Index Client (C2): catalog
// operations against an external index, with path translation, a bounded
// query cache, and a degraded local-scan / demo fallback when the index is
// unreachable.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nextlevelbuilder/vdsgateway/internal/apierr"
	"github.com/nextlevelbuilder/vdsgateway/internal/cache"
	"github.com/nextlevelbuilder/vdsgateway/internal/model"
)

// Mode reports which backend is actually serving catalog requests.
type Mode string

const (
	ModeIndex     Mode = "index"
	ModeLocalScan Mode = "local_scan"
	ModeDemo      Mode = "demo"
)

// PathTranslator rewrites a survey path the index encoded against a
// container root into the root actually mounted on this host.
type PathTranslator interface {
	TranslatePath(path string) string
}

// Client is the default Metadata Index Client.
type Client struct {
	endpoint   string
	httpClient *http.Client
	translator PathTranslator
	mountRoots []string

	searchCache *cache.Cache
	facetsCache *cache.Cache

	mu       sync.RWMutex
	mode     Mode
	surveys  []model.Survey // used by local_scan and demo modes
}

// New builds a Client. If endpoint is empty, Init skips the index probe and
// goes straight to the local-scan / demo fallback.
func New(endpoint string, timeout time.Duration, translator PathTranslator, mountRoots []string, searchCache, facetsCache *cache.Cache) *Client {
	c := &Client{
		endpoint:    endpoint,
		httpClient:  &http.Client{Timeout: timeout},
		translator:  translator,
		mountRoots:  mountRoots,
		searchCache: searchCache,
		facetsCache: facetsCache,
	}
	return c
}

// Init probes the index once at startup, falling back to a local scan and
// then a demo catalog if both yield nothing. Never returns an error: a
// gateway with no reachable index still serves catalog operations.
func (c *Client) Init(ctx context.Context) {
	if c.endpoint != "" {
		if c.probeIndex(ctx) {
			c.mu.Lock()
			c.mode = ModeIndex
			c.mu.Unlock()
			return
		}
	}

	scanned := c.scanMountRoots()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(scanned) > 0 {
		c.mode = ModeLocalScan
		c.surveys = scanned
		return
	}
	c.mode = ModeDemo
	c.surveys = demoCatalog()
}

func (c *Client) probeIndex(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// scanMountRoots walks the configured mount roots looking for volume files,
// synthesizing minimal survey descriptors from filenames, the way the
// degraded local-scan fallback is supposed to when the index is down.
func (c *Client) scanMountRoots() []model.Survey {
	var surveys []model.Survey
	for _, root := range c.mountRoots {
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d == nil || d.IsDir() {
				return nil
			}
			if !strings.HasSuffix(strings.ToLower(path), ".vds") {
				return nil
			}
			id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			surveys = append(surveys, model.Survey{
				ID:   id,
				Name: titleCase(strings.ReplaceAll(id, "_", " ")),
				Path: path,
			})
			return nil
		})
	}
	return surveys
}

// Mode reports which backend is currently serving catalog requests.
func (c *Client) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// CacheStats reports the search and facets query caches, backing
// get_cache_stats.
func (c *Client) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"search": c.searchCache.Stats(),
		"facets": c.facetsCache.Stats(),
	}
}

// SearchArgs is the normalized input to Search.
type SearchArgs struct {
	Query  string
	Region string
	Year   int
	Offset int
	Limit  int
}

// SearchResult is one page of survey search results.
type SearchResult struct {
	Surveys    []model.Survey `json:"surveys"`
	TotalCount int            `json:"total_count"`
	NextOffset *int           `json:"next_offset"`
}

// Search ranks by relevance when a query is given, otherwise by
// last-modified descending. Results are cached under the canonicalized
// argument key.
func (c *Client) Search(ctx context.Context, args SearchArgs) (SearchResult, error) {
	if args.Limit <= 0 || args.Limit > 100 {
		args.Limit = 100
	}

	key := cache.Key(map[string]any{
		"query": args.Query, "region": args.Region, "year": args.Year,
		"offset": args.Offset, "limit": args.Limit,
	})
	if v, ok := c.searchCache.Get(key); ok {
		return v.(SearchResult), nil
	}

	all, err := c.allSurveys(ctx)
	if err != nil {
		return SearchResult{}, err
	}

	filtered := filterSurveys(all, args.Query, args.Region, args.Year)
	if args.Query == "" {
		sort.Slice(filtered, func(i, j int) bool { return filtered[i].LastModified > filtered[j].LastModified })
	} else {
		sort.Slice(filtered, func(i, j int) bool { return relevance(filtered[i], args.Query) > relevance(filtered[j], args.Query) })
	}

	total := len(filtered)
	lo := args.Offset
	if lo > total {
		lo = total
	}
	hi := lo + args.Limit
	if hi > total {
		hi = total
	}
	page := filtered[lo:hi]

	var next *int
	if hi < total {
		n := hi
		next = &n
	}

	result := SearchResult{Surveys: page, TotalCount: total, NextOffset: next}
	c.searchCache.Set(key, result)
	return result, nil
}

// List returns surveys filtered by region/year, capped at 200.
func (c *Client) List(ctx context.Context, region string, year int, max int) ([]model.Survey, error) {
	if max <= 0 || max > 200 {
		max = 200
	}
	all, err := c.allSurveys(ctx)
	if err != nil {
		return nil, err
	}
	filtered := filterSurveys(all, "", region, year)
	if len(filtered) > max {
		filtered = filtered[:max]
	}
	return filtered, nil
}

// Get resolves a single survey by id.
func (c *Client) Get(ctx context.Context, surveyID string) (model.Survey, error) {
	all, err := c.allSurveys(ctx)
	if err != nil {
		return model.Survey{}, err
	}
	for _, s := range all {
		if s.ID == surveyID {
			if c.translator != nil {
				s.Path = c.translator.TranslatePath(s.Path)
			}
			return s, nil
		}
	}
	return model.Survey{}, apierr.NotFoundf("survey not found: %s", surveyID)
}

// IndexStats summarizes the whole catalog.
type IndexStats struct {
	Count             int            `json:"count"`
	TotalBytes        int64          `json:"total_bytes"`
	ByType            map[string]int `json:"by_type"`
	ByDimensionality  map[int]int    `json:"by_dimensionality"`
}

// IndexStats computes aggregate counts over the whole catalog, using the
// facets cache since it changes at the same cadence as the facet map.
func (c *Client) IndexStats(ctx context.Context) (IndexStats, error) {
	key := cache.Key(map[string]any{"op": "index_stats"})
	if v, ok := c.facetsCache.Get(key); ok {
		return v.(IndexStats), nil
	}

	all, err := c.allSurveys(ctx)
	if err != nil {
		return IndexStats{}, err
	}

	stats := IndexStats{ByType: map[string]int{}, ByDimensionality: map[int]int{}}
	for _, s := range all {
		stats.Count++
		stats.ByType[s.DataType]++
		stats.ByDimensionality[s.Dimensionality]++
	}
	c.facetsCache.Set(key, stats)
	return stats, nil
}

// Facets builds a facet map (region -> count, data_type -> count) for
// get_facets, filtered the same way List is.
func (c *Client) Facets(ctx context.Context, region string, year int) (map[string]map[string]int, error) {
	key := cache.Key(map[string]any{"op": "facets", "region": region, "year": year})
	if v, ok := c.facetsCache.Get(key); ok {
		return v.(map[string]map[string]int), nil
	}

	all, err := c.allSurveys(ctx)
	if err != nil {
		return nil, err
	}
	filtered := filterSurveys(all, "", region, year)

	facets := map[string]map[string]int{"region": {}, "data_type": {}}
	for _, s := range filtered {
		if s.Region != "" {
			facets["region"][s.Region]++
		}
		if s.DataType != "" {
			facets["data_type"][s.DataType]++
		}
	}
	c.facetsCache.Set(key, facets)
	return facets, nil
}

func (c *Client) allSurveys(ctx context.Context) ([]model.Survey, error) {
	c.mu.RLock()
	mode := c.mode
	c.mu.RUnlock()

	if mode == ModeIndex {
		surveys, err := c.fetchFromIndex(ctx)
		if err != nil {
			return nil, apierr.Wrap(apierr.Unavailable, err, "metadata index unreachable")
		}
		return surveys, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.surveys, nil
}

func (c *Client) fetchFromIndex(ctx context.Context) ([]model.Survey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/surveys", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned status %d", resp.StatusCode)
	}
	var surveys []model.Survey
	if err := json.NewDecoder(resp.Body).Decode(&surveys); err != nil {
		return nil, err
	}
	return surveys, nil
}

func filterSurveys(all []model.Survey, query, region string, year int) []model.Survey {
	out := make([]model.Survey, 0, len(all))
	q := strings.ToLower(query)
	for _, s := range all {
		if region != "" && !strings.Contains(strings.ToLower(s.Region), strings.ToLower(region)) {
			continue
		}
		if year != 0 && !strings.Contains(s.AcquisitionAt, strconv.Itoa(year)) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(s.Name), q) && !strings.Contains(strings.ToLower(s.Region), q) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// titleCase capitalizes the first letter of each word; strings.Title is
// deprecated and this catalog only ever sees ASCII filenames.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// relevance is a minimal term-overlap score used to rank query-bearing
// searches; good enough for a demo/local-scan catalog, not a substitute for
// the real index's ranking.
func relevance(s model.Survey, query string) int {
	q := strings.ToLower(query)
	score := 0
	if strings.Contains(strings.ToLower(s.Name), q) {
		score += 2
	}
	if strings.Contains(strings.ToLower(s.Region), q) {
		score += 1
	}
	return score
}
