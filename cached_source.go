// Copyright 2025 Contriboss
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pubgrub

import "fmt"

// CachedSource wraps a Source and caches GetVersions/GetDependencies calls,
// plus a decision-level-aware candidate cache keyed by PackageID
// (name + source coordinates) for use by the solver's choose_next_version
// step.
//
// The candidate cache is a stack per PackageID: each decision level that
// narrows a package's allowed set pushes a filtered frame, and ClearLevel
// pops every frame pushed above a backjump target. Without this, a stale
// filtered candidate list computed before a backtrack would silently leak
// into the post-backtrack constraint context.
type CachedSource struct {
	source Source

	versionsCache     map[Name][]Version
	versionsCalls     int
	versionsCacheHits int

	depsCache     map[string][]Term
	depsCalls     int
	depsCacheHits int

	candidateStacks map[PackageID][]cacheFrame
	levelKeys       map[int][]PackageID
}

type cacheFrame struct {
	level    int
	versions []Version
}

// NewCachedSource creates a new caching wrapper around the given source.
func NewCachedSource(source Source) *CachedSource {
	return &CachedSource{
		source:          source,
		versionsCache:   make(map[Name][]Version),
		depsCache:       make(map[string][]Term),
		candidateStacks: make(map[PackageID][]cacheFrame),
		levelKeys:       make(map[int][]PackageID),
	}
}

// GetVersions returns all available versions for a package, caching the result.
func (c *CachedSource) GetVersions(name Name) ([]Version, error) {
	c.versionsCalls++

	if versions, ok := c.versionsCache[name]; ok {
		c.versionsCacheHits++
		return versions, nil
	}

	versions, err := c.source.GetVersions(name)
	if err != nil {
		return nil, err
	}

	c.versionsCache[name] = versions
	return versions, nil
}

// GetDependencies returns dependencies for a specific package version, caching the result.
func (c *CachedSource) GetDependencies(name Name, version Version) ([]Term, error) {
	c.depsCalls++

	key := fmt.Sprintf("%s@%s", name.Value(), version)

	if deps, ok := c.depsCache[key]; ok {
		c.depsCacheHits++
		return deps, nil
	}

	deps, err := c.source.GetDependencies(name, version)
	if err != nil {
		return nil, err
	}

	c.depsCache[key] = deps
	return deps, nil
}

// SearchAt returns the candidate versions for id that satisfy allowed,
// scoped to decision level. It first checks id's top cache frame, filtering
// it by allowed; if that yields nothing it re-queries the underlying
// source (which may include pre-releases a narrower earlier frame
// excluded), filters the fresh result, and pushes a new frame at level.
func (c *CachedSource) SearchAt(id PackageID, allowed VersionSet, level int) ([]Version, error) {
	stack := c.candidateStacks[id]
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		if filtered := filterVersions(top.versions, allowed); len(filtered) > 0 {
			return filtered, nil
		}
	}

	versions, err := c.GetVersions(id.Name)
	if err != nil {
		return nil, err
	}

	filtered := filterVersions(versions, allowed)
	c.candidateStacks[id] = append(stack, cacheFrame{level: level, versions: filtered})
	c.levelKeys[level] = append(c.levelKeys[level], id)
	return filtered, nil
}

func filterVersions(versions []Version, allowed VersionSet) []Version {
	if allowed == nil {
		return versions
	}
	out := make([]Version, 0, len(versions))
	for _, v := range versions {
		if allowed.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// ClearLevel discards every candidate-cache frame pushed at a decision
// level strictly greater than n, called by the solver immediately after
// backtracking so stale filtered candidate lists cannot leak into the new
// constraint context.
func (c *CachedSource) ClearLevel(n int) {
	for level, keys := range c.levelKeys {
		if level <= n {
			continue
		}
		for _, id := range keys {
			stack := c.candidateStacks[id]
			for len(stack) > 0 && stack[len(stack)-1].level > n {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				delete(c.candidateStacks, id)
			} else {
				c.candidateStacks[id] = stack
			}
		}
		delete(c.levelKeys, level)
	}
}

// CacheStats returns statistics about cache performance.
type CacheStats struct {
	VersionsCalls     int
	VersionsCacheHits int
	VersionsHitRate   float64

	DepsCalls     int
	DepsCacheHits int
	DepsHitRate   float64

	TotalCalls     int
	TotalCacheHits int
	OverallHitRate float64
}

// GetCacheStats returns cache performance statistics.
func (c *CachedSource) GetCacheStats() CacheStats {
	stats := CacheStats{
		VersionsCalls:     c.versionsCalls,
		VersionsCacheHits: c.versionsCacheHits,
		DepsCalls:         c.depsCalls,
		DepsCacheHits:     c.depsCacheHits,
		TotalCalls:        c.versionsCalls + c.depsCalls,
		TotalCacheHits:    c.versionsCacheHits + c.depsCacheHits,
	}

	if stats.VersionsCalls > 0 {
		stats.VersionsHitRate = float64(stats.VersionsCacheHits) / float64(stats.VersionsCalls)
	}

	if stats.DepsCalls > 0 {
		stats.DepsHitRate = float64(stats.DepsCacheHits) / float64(stats.DepsCalls)
	}

	if stats.TotalCalls > 0 {
		stats.OverallHitRate = float64(stats.TotalCacheHits) / float64(stats.TotalCalls)
	}

	return stats
}

// ClearCache clears all cached data while preserving the underlying source.
func (c *CachedSource) ClearCache() {
	c.versionsCache = make(map[Name][]Version)
	c.depsCache = make(map[string][]Term)
	c.versionsCalls = 0
	c.versionsCacheHits = 0
	c.depsCalls = 0
	c.depsCacheHits = 0
	c.candidateStacks = make(map[PackageID][]cacheFrame)
	c.levelKeys = make(map[int][]PackageID)
}

var (
	_ Source = (*CachedSource)(nil)
)
