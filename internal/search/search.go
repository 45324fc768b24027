// Package search provides filename and full-content search over the
// transcript metadata cache. Content searches are linear scans that re-read
// files from disk; there is no inverted index and no relevance scoring beyond
// raw match counts.
package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/finsearch/supersearch-mcp/internal/cache"
)

const (
	// DefaultSafeLimit is the safe-mode result ceiling. Above it a search
	// returns a warning preview instead of results unless overridden.
	DefaultSafeLimit = 10

	maxSnippets    = 3
	snippetContext = 100
)

// Service answers filename and content queries against a metadata store.
type Service struct {
	store     *cache.Store
	safeLimit int
	logger    *zap.Logger
}

// New creates a search service. safeLimit <= 0 selects DefaultSafeLimit.
func New(store *cache.Store, safeLimit int, logger *zap.Logger) *Service {
	if safeLimit <= 0 {
		safeLimit = DefaultSafeLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, safeLimit: safeLimit, logger: logger}
}

// FileHit is one filename-search result.
type FileHit struct {
	File            string `json:"file"`
	Filename        string `json:"filename"`
	EstimatedTokens int    `json:"estimated_tokens"`
	Pages           int    `json:"pages"`
}

// NameResult is the envelope returned by FindFilesByName. When Preview is
// true the result set exceeded the safe limit and only Count and Message are
// populated.
type NameResult struct {
	Preview bool      `json:"preview"`
	Count   int       `json:"count"`
	Message string    `json:"message,omitempty"`
	Results []FileHit `json:"results,omitempty"`
}

// FindFilesByName matches cached filenames by case-insensitive substring, or
// by case-insensitive regex when useRegex is set.
func (s *Service) FindFilesByName(query string, useRegex, safe bool) (NameResult, error) {
	var pattern *regexp.Regexp
	if useRegex {
		var err error
		pattern, err = regexp.Compile("(?i)" + query)
		if err != nil {
			return NameResult{}, fmt.Errorf("invalid regex pattern: %w", err)
		}
	}
	lowerQuery := strings.ToLower(query)

	var results []FileHit
	records := s.store.Snapshot()
	for _, path := range sortedPaths(records) {
		rec := records[path]
		matched := false
		if useRegex {
			matched = pattern.MatchString(rec.Filename)
		} else {
			matched = strings.Contains(strings.ToLower(rec.Filename), lowerQuery)
		}
		if matched {
			results = append(results, FileHit{
				File:            path,
				Filename:        rec.Filename,
				EstimatedTokens: rec.EstimatedTokens,
				Pages:           rec.Pages,
			})
		}
	}

	if safe && len(results) > s.safeLimit {
		return NameResult{
			Preview: true,
			Count:   len(results),
			Message: fmt.Sprintf("Found %d matching files. This exceeds the safe limit of %d. Try a more specific query or use safe=false to get all %d results.", len(results), s.safeLimit, len(results)),
		}, nil
	}

	return NameResult{Count: len(results), Results: results}, nil
}

// Snippet is a small context window around one content match.
type Snippet struct {
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
}

// ContentHit is the per-file result of a content search.
type ContentHit struct {
	File            string    `json:"file"`
	MatchCount      int       `json:"match_count"`
	EstimatedTokens int       `json:"estimated_tokens"`
	Snippets        []Snippet `json:"snippets,omitempty"`
}

// ContentResult is the envelope returned by SearchContent. The safe threshold
// applies to the number of files with at least one match, not to the total
// match count.
type ContentResult struct {
	Preview bool         `json:"preview"`
	Count   int          `json:"count"`
	Message string       `json:"message,omitempty"`
	Results []ContentHit `json:"results,omitempty"`
}

// SearchContent scans cached files for the query, re-reading and re-cleaning
// each candidate from disk. files narrows the scan to a caller-supplied
// subset; entries not present in the cache are silently skipped. Files with
// zero matches are omitted.
func (s *Service) SearchContent(query string, files []string, useRegex, withSnippets, safe bool) (ContentResult, error) {
	var pattern *regexp.Regexp
	if useRegex {
		var err error
		pattern, err = regexp.Compile("(?im)" + query)
		if err != nil {
			return ContentResult{}, fmt.Errorf("invalid regex pattern: %w", err)
		}
	}

	records := s.store.Snapshot()
	var candidates []string
	if files == nil {
		candidates = sortedPaths(records)
	} else {
		for _, f := range files {
			if _, ok := records[f]; ok {
				candidates = append(candidates, f)
			}
		}
	}

	var results []ContentHit
	for _, path := range candidates {
		content, err := s.store.ReadClean(path)
		if err != nil {
			return ContentResult{}, err
		}

		var matches []Snippet
		if useRegex {
			for _, loc := range pattern.FindAllStringIndex(content, -1) {
				line := strings.Count(content[:loc[0]], "\n") + 1
				matches = append(matches, Snippet{Line: line, Snippet: window(content, loc[0])})
			}
		} else {
			lowerQuery := strings.ToLower(query)
			for i, line := range strings.Split(content, "\n") {
				if strings.Contains(strings.ToLower(line), lowerQuery) {
					matches = append(matches, Snippet{Line: i + 1, Snippet: strings.TrimSpace(line)})
				}
			}
		}
		if len(matches) == 0 {
			continue
		}

		hit := ContentHit{
			File:            path,
			MatchCount:      len(matches),
			EstimatedTokens: records[path].EstimatedTokens,
		}
		if withSnippets {
			hit.Snippets = matches[:min(len(matches), maxSnippets)]
		}
		results = append(results, hit)
	}

	if safe && len(results) > s.safeLimit {
		return ContentResult{
			Preview: true,
			Count:   len(results),
			Message: fmt.Sprintf("Found %d files with matching content. This exceeds the safe limit of %d. Try a more specific query or use safe=false to get all %d results.", len(results), s.safeLimit, len(results)),
		}, nil
	}

	return ContentResult{Count: len(results), Results: results}, nil
}

// window returns a fixed-width character window centered on pos.
func window(content string, pos int) string {
	start := max(pos-snippetContext, 0)
	end := min(pos+snippetContext, len(content))
	return content[start:end]
}

func sortedPaths(records map[string]cache.FileRecord) []string {
	paths := make([]string, 0, len(records))
	for path := range records {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
