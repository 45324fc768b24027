// Package cache maintains the persistent metadata store for transcript files.
// Only file metadata is cached; content is re-read from disk on every
// content-bearing operation so results always reflect the current files.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/finsearch/supersearch-mcp/internal/normalize"
	"github.com/finsearch/supersearch-mcp/internal/pages"
)

// DefaultCacheFile is the sidecar file the store persists to, colocated with
// the scanned directory.
const DefaultCacheFile = ".supercache.json"

var (
	// ErrNotFound reports a path absent from the cache or from disk.
	ErrNotFound = errors.New("file not found")
	// ErrDirectoryNotFound reports a missing sync target.
	ErrDirectoryNotFound = errors.New("directory does not exist")
)

// FileRecord is the cached metadata for one transcript file. Counts reflect
// the cleaned content as of LastModified.
type FileRecord struct {
	Filename        string `json:"filename"`
	LastModified    string `json:"last_modified"`
	CharCount       int    `json:"char_count"`
	EstimatedTokens int    `json:"estimated_tokens"`
	Pages           int    `json:"pages"`
}

// SyncResult summarizes one reconciliation pass.
type SyncResult struct {
	Processed    int `json:"processed"`
	NewFiles     int `json:"new_files"`
	UpdatedFiles int `json:"updated_files"`
	Removed      int `json:"removed"`
	TotalCached  int `json:"total_cached"`
}

// EstimateTokens approximates the LLM token count of charCount characters.
// Deliberately crude (chars/4): budgeting only, no tokenizer dependency.
func EstimateTokens(charCount int) int {
	return charCount / 4
}

// Store maps root-relative transcript paths to their cached metadata. Sync is
// the only mutator; every read-time operation treats the store as advisory
// metadata and re-reads content from disk.
type Store struct {
	mu        sync.RWMutex
	root      string
	cacheFile string
	records   map[string]FileRecord
	lastSaved uint64
	logger    *zap.Logger
}

// NewStore creates a store rooted at dir. The cache is empty until the first
// Sync.
func NewStore(dir, cacheFile string, logger *zap.Logger) *Store {
	absRoot, _ := filepath.Abs(dir)
	if cacheFile == "" {
		cacheFile = DefaultCacheFile
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		root:      absRoot,
		cacheFile: cacheFile,
		records:   make(map[string]FileRecord),
		logger:    logger,
	}
}

// Root returns the absolute directory the store currently scans.
func (s *Store) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the record for a root-relative path.
func (s *Store) Get(path string) (FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[path]
	return rec, ok
}

// Snapshot returns a copy of the cached records for iteration.
func (s *Store) Snapshot() map[string]FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]FileRecord, len(s.records))
	for path, rec := range s.records {
		out[path] = rec
	}
	return out
}

// Paths returns all cached paths in sorted order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.records))
	for path := range s.records {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Resolve maps a root-relative path to an absolute one, rejecting traversal
// outside the root.
func (s *Store) Resolve(path string) (string, error) {
	root := s.Root()
	full, err := filepath.Abs(filepath.Join(root, strings.TrimPrefix(strings.TrimSpace(path), "/")))
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, full)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal not allowed: %s", path)
	}
	return full, nil
}

// ReadClean reads a cached file from disk and returns its cleaned content.
// The path must be present in the cache; the content itself is never cached.
func (s *Store) ReadClean(path string) (string, error) {
	if _, ok := s.Get(path); !ok {
		return "", fmt.Errorf("%w in cache: %s", ErrNotFound, path)
	}
	full, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w on disk: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return normalize.Clean(string(raw)), nil
}

// Sync reconciles on-disk state with the cache. If dir is non-empty the store
// re-roots to it first. The prior persisted cache is loaded before scanning,
// new and modified files are re-read and re-counted, unchanged files are left
// alone, records for deleted files are pruned, and the full cache is written
// back. Idempotent when the file system has not changed.
func (s *Store) Sync(dir string) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir != "" {
		absRoot, err := filepath.Abs(dir)
		if err != nil {
			return SyncResult{}, err
		}
		if absRoot != s.root {
			s.root = absRoot
			s.lastSaved = 0
		}
	}

	info, err := os.Stat(s.root)
	if err != nil || !info.IsDir() {
		return SyncResult{}, fmt.Errorf("%w: %s", ErrDirectoryNotFound, s.root)
	}

	s.records = s.loadPersisted()

	matches, err := doublestar.Glob(os.DirFS(s.root), "**/*.md")
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}
	sort.Strings(matches)

	var result SyncResult
	seen := make(map[string]bool, len(matches))
	for _, rel := range matches {
		rel = filepath.ToSlash(rel)
		seen[rel] = true

		full := filepath.Join(s.root, filepath.FromSlash(rel))
		stat, err := os.Stat(full)
		if err != nil {
			s.logger.Warn("skipping unreadable file", zap.String("path", rel), zap.Error(err))
			continue
		}
		modified := stat.ModTime().Format(time.RFC3339Nano)

		prev, cached := s.records[rel]
		if cached && prev.LastModified == modified {
			result.Processed++
			continue
		}

		raw, err := os.ReadFile(full)
		if err != nil {
			s.logger.Warn("skipping unreadable file", zap.String("path", rel), zap.Error(err))
			continue
		}
		cleaned := normalize.Clean(string(raw))
		s.records[rel] = FileRecord{
			Filename:        filepath.Base(rel),
			LastModified:    modified,
			CharCount:       len(cleaned),
			EstimatedTokens: EstimateTokens(len(cleaned)),
			Pages:           pages.Count(cleaned),
		}

		if cached {
			result.UpdatedFiles++
		} else {
			result.NewFiles++
		}
		result.Processed++
	}

	for path := range s.records {
		if !seen[path] {
			delete(s.records, path)
			result.Removed++
		}
	}

	if err := s.persist(); err != nil {
		return SyncResult{}, err
	}

	result.TotalCached = len(s.records)
	s.logger.Info("sync complete",
		zap.String("root", s.root),
		zap.Int("processed", result.Processed),
		zap.Int("new", result.NewFiles),
		zap.Int("updated", result.UpdatedFiles),
		zap.Int("removed", result.Removed),
	)
	return result, nil
}

// loadPersisted reads the cache sidecar permissively: a missing or malformed
// file yields an empty cache and a full re-index, never an error.
func (s *Store) loadPersisted() map[string]FileRecord {
	data, err := os.ReadFile(filepath.Join(s.root, s.cacheFile))
	if err != nil {
		return make(map[string]FileRecord)
	}
	var records map[string]FileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("discarding malformed cache file", zap.Error(err))
		return make(map[string]FileRecord)
	}
	if records == nil {
		records = make(map[string]FileRecord)
	}
	return records
}

// persist writes the cache sidecar, skipping the write when the serialized
// form is identical to the last one written.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.records, "", "    ")
	if err != nil {
		return err
	}
	sum := xxhash.Sum64(data)
	if sum == s.lastSaved {
		return nil
	}
	if err := os.WriteFile(filepath.Join(s.root, s.cacheFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to persist cache: %w", err)
	}
	s.lastSaved = sum
	return nil
}
