// Package retrieval implements the staged content-retrieval operations: line
// previews, truncated page segments, token-budget estimation, and final file
// reads. Every content-bearing operation re-reads and re-cleans from disk;
// cached metadata is advisory for planning, never authoritative for content.
package retrieval

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/finsearch/supersearch-mcp/internal/cache"
	"github.com/finsearch/supersearch-mcp/internal/pages"
)

const (
	// DefaultPreviewCharLimit is the safe-mode ceiling for line previews.
	DefaultPreviewCharLimit = 2000
	// DefaultTokenWarnThreshold is the budget above which EstimateTokens
	// attaches a warning.
	DefaultTokenWarnThreshold = 100_000
	// DefaultSegmentChars is the per-page truncation limit for segments.
	DefaultSegmentChars = 500
)

// ErrRange reports an invalid line or page range.
var ErrRange = errors.New("invalid range")

// Service implements preview, segmentation, estimation, and read over a
// metadata store.
type Service struct {
	store        *cache.Store
	previewLimit int
	tokenWarn    int
	logger       *zap.Logger
}

// New creates a retrieval service. Non-positive limits select the defaults.
func New(store *cache.Store, previewLimit, tokenWarn int, logger *zap.Logger) *Service {
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewCharLimit
	}
	if tokenWarn <= 0 {
		tokenWarn = DefaultTokenWarnThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, previewLimit: previewLimit, tokenWarn: tokenWarn, logger: logger}
}

// LinePreview is the envelope returned by PreviewLines. Preview=true means
// the requested range exceeded the safe character limit and Content is empty.
type LinePreview struct {
	Preview         bool   `json:"preview"`
	File            string `json:"file,omitempty"`
	RequestedLines  string `json:"requested_lines"`
	TotalLines      int    `json:"total_lines,omitempty"`
	ReturnedLines   int    `json:"returned_lines,omitempty"`
	CharCount       int    `json:"char_count"`
	EstimatedTokens int    `json:"estimated_tokens,omitempty"`
	Content         string `json:"content,omitempty"`
	Message         string `json:"message,omitempty"`
}

// PreviewLines extracts an inclusive 1-indexed line range from the cleaned
// file content. startLine below 1 is clamped to 1; endLine 0 means the last
// line and is clamped to it.
func (s *Service) PreviewLines(file string, startLine, endLine int, safe bool) (LinePreview, error) {
	content, err := s.store.ReadClean(file)
	if err != nil {
		return LinePreview{}, err
	}

	lines := strings.Split(content, "\n")
	totalLines := len(lines)

	startLine = max(startLine, 1)
	if startLine > totalLines {
		return LinePreview{}, fmt.Errorf("%w: start line %d exceeds file length (%d lines)", ErrRange, startLine, totalLines)
	}
	if endLine <= 0 || endLine > totalLines {
		endLine = totalLines
	}
	if endLine < startLine {
		return LinePreview{}, fmt.Errorf("%w: end line %d cannot be less than start line %d", ErrRange, endLine, startLine)
	}

	selected := lines[startLine-1 : endLine]
	preview := strings.Join(selected, "\n")
	charCount := len(preview)
	requested := fmt.Sprintf("%d-%d", startLine, endLine)

	if safe && charCount > s.previewLimit {
		return LinePreview{
			Preview:        true,
			RequestedLines: requested,
			CharCount:      charCount,
			Message:        fmt.Sprintf("Requested lines would return %d characters (>%d limit). Try a smaller range or use safe=false to get all requested lines.", charCount, s.previewLimit),
		}, nil
	}

	return LinePreview{
		File:            file,
		RequestedLines:  requested,
		TotalLines:      totalLines,
		ReturnedLines:   len(selected),
		CharCount:       charCount,
		EstimatedTokens: cache.EstimateTokens(charCount),
		Content:         preview,
	}, nil
}

// Segment is one truncated page preview.
type Segment struct {
	Page            int    `json:"page"`
	EstimatedTokens int    `json:"estimated_tokens"`
	Content         string `json:"content"`
}

// SegmentResult is the envelope returned by PageSegments.
type SegmentResult struct {
	File       string    `json:"file"`
	TotalPages int       `json:"total_pages"`
	Segments   []Segment `json:"segments"`
}

// PageSegments returns truncated previews for the selected pages. A non-nil
// pageList overrides the [startPage, endPage] range. Token estimates are
// computed from the untruncated page body.
func (s *Service) PageSegments(file string, pageList []int, startPage, endPage, maxChars int) (SegmentResult, error) {
	if startPage == 0 {
		startPage = 1
	}
	if endPage == 0 {
		endPage = 2
	}
	if maxChars <= 0 {
		maxChars = DefaultSegmentChars
	}

	content, err := s.store.ReadClean(file)
	if err != nil {
		return SegmentResult{}, err
	}
	bodies := pages.Split(content)
	totalPages := len(bodies)

	selected, err := selectPages(pageList, startPage, endPage, totalPages)
	if err != nil {
		return SegmentResult{}, err
	}

	segments := make([]Segment, 0, len(selected))
	for _, page := range selected {
		body := bodies[page-1]
		truncated := body
		if len(body) > maxChars {
			truncated = body[:maxChars] + "..."
		}
		segments = append(segments, Segment{
			Page:            page,
			EstimatedTokens: cache.EstimateTokens(len(body)),
			Content:         truncated,
		})
	}

	return SegmentResult{File: file, TotalPages: totalPages, Segments: segments}, nil
}

// FileEstimate is the per-file breakdown of a token estimate.
type FileEstimate struct {
	File            string `json:"file"`
	SelectedPages   []int  `json:"selected_pages,omitempty"`
	EstimatedTokens int    `json:"estimated_tokens"`
	Error           string `json:"error,omitempty"`
}

// EstimateResult is the envelope returned by EstimateTokens.
type EstimateResult struct {
	TotalEstimatedTokens int            `json:"total_estimated_tokens"`
	Files                []FileEstimate `json:"files"`
	Warning              string         `json:"warning,omitempty"`
}

// EstimateTokens sums token estimates for the given files. Whole-file
// estimates come from cache metadata alone; a file with an entry in
// selections is re-read and only the selected pages are counted. Files
// appearing only in selections are included as well. Unknown files yield
// per-file error entries rather than failing the whole call.
func (s *Service) EstimateTokens(files []string, selections map[string][]int) (EstimateResult, error) {
	var result EstimateResult
	done := make(map[string]bool, len(files))

	estimate := func(file string) FileEstimate {
		rec, ok := s.store.Get(file)
		if !ok {
			return FileEstimate{File: file, Error: "file not found in cache"}
		}
		selected, hasSelection := selections[file]
		if !hasSelection {
			return FileEstimate{File: file, EstimatedTokens: rec.EstimatedTokens}
		}
		content, err := s.store.ReadClean(file)
		if err != nil {
			return FileEstimate{File: file, Error: err.Error()}
		}
		bodies := pages.Split(content)
		tokens := 0
		for _, page := range selected {
			if page >= 1 && page <= len(bodies) {
				tokens += cache.EstimateTokens(len(bodies[page-1]))
			}
		}
		return FileEstimate{File: file, SelectedPages: selected, EstimatedTokens: tokens}
	}

	for _, file := range files {
		if done[file] {
			continue
		}
		done[file] = true
		fe := estimate(file)
		result.Files = append(result.Files, fe)
		result.TotalEstimatedTokens += fe.EstimatedTokens
	}

	extra := make([]string, 0, len(selections))
	for file := range selections {
		if !done[file] {
			extra = append(extra, file)
		}
	}
	sort.Strings(extra)
	for _, file := range extra {
		fe := estimate(file)
		result.Files = append(result.Files, fe)
		result.TotalEstimatedTokens += fe.EstimatedTokens
	}

	if result.TotalEstimatedTokens > s.tokenWarn {
		result.Warning = fmt.Sprintf("Over %dk tokens", s.tokenWarn/1000)
	}
	return result, nil
}

// ReadResult is the envelope returned by ReadFile.
type ReadResult struct {
	File            string `json:"file"`
	Mode            string `json:"mode"`
	SelectedPages   []int  `json:"selected_pages,omitempty"`
	CharCount       int    `json:"char_count"`
	EstimatedTokens int    `json:"estimated_tokens"`
	Content         string `json:"content"`
}

// ReadFile returns cleaned file content. With no page parameters the whole
// file is returned with its cached counts. With pageList or a
// [startPage, endPage] range the selected pages are validated, reassembled
// with synthetic "# Page N" markers, and counted fresh for that selection.
func (s *Service) ReadFile(file string, pageList []int, startPage, endPage int) (ReadResult, error) {
	rec, ok := s.store.Get(file)
	if !ok {
		return ReadResult{}, fmt.Errorf("%w in cache: %s", cache.ErrNotFound, file)
	}
	content, err := s.store.ReadClean(file)
	if err != nil {
		return ReadResult{}, err
	}

	if pageList == nil && startPage == 0 && endPage == 0 {
		return ReadResult{
			File:            file,
			Mode:            "full",
			CharCount:       rec.CharCount,
			EstimatedTokens: rec.EstimatedTokens,
			Content:         content,
		}, nil
	}

	bodies := pages.Split(content)
	totalPages := len(bodies)

	var mode string
	if pageList != nil {
		mode = fmt.Sprintf("pages %v", pageList)
	} else {
		if startPage == 0 {
			startPage = 1
		}
		if endPage == 0 {
			endPage = totalPages
		}
		mode = fmt.Sprintf("pages %d-%d", startPage, endPage)
	}

	selected, err := selectPages(pageList, startPage, endPage, totalPages)
	if err != nil {
		return ReadResult{}, err
	}

	parts := make([]string, 0, len(selected))
	for _, page := range selected {
		parts = append(parts, fmt.Sprintf("# Page %d\n%s", page, bodies[page-1]))
	}
	assembled := strings.Join(parts, "\n\n")

	return ReadResult{
		File:            file,
		Mode:            mode,
		SelectedPages:   selected,
		CharCount:       len(assembled),
		EstimatedTokens: cache.EstimateTokens(len(assembled)),
		Content:         assembled,
	}, nil
}

// selectPages validates and resolves a page selection to an ascending list.
// A non-nil pageList wins over the range.
func selectPages(pageList []int, startPage, endPage, totalPages int) ([]int, error) {
	if pageList != nil {
		for _, page := range pageList {
			if page < 1 || page > totalPages {
				return nil, fmt.Errorf("%w: page %d out of range (1-%d)", ErrRange, page, totalPages)
			}
		}
		selected := make([]int, len(pageList))
		copy(selected, pageList)
		sort.Ints(selected)
		return selected, nil
	}

	if startPage < 1 || startPage > totalPages {
		return nil, fmt.Errorf("%w: start_page %d out of range (1-%d)", ErrRange, startPage, totalPages)
	}
	if endPage < startPage || endPage > totalPages {
		return nil, fmt.Errorf("%w: end_page %d out of range (%d-%d)", ErrRange, endPage, startPage, totalPages)
	}
	selected := make([]int, 0, endPage-startPage+1)
	for page := startPage; page <= endPage; page++ {
		selected = append(selected, page)
	}
	return selected, nil
}
