package main

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finsearch/supersearch-mcp/internal/cache"
	"github.com/finsearch/supersearch-mcp/internal/retrieval"
	"github.com/finsearch/supersearch-mcp/internal/search"
)

// application is the composition root: one metadata store shared by the
// search and retrieval services, injected into every handler.
type application struct {
	store     *cache.Store
	search    *search.Service
	retrieval *retrieval.Service
}

// orTrue resolves optional boolean inputs whose default is true.
func orTrue(v *bool) bool {
	return v == nil || *v
}

func (a *application) handleSync(ctx context.Context, req *mcp.CallToolRequest, input SyncInput) (*mcp.CallToolResult, cache.SyncResult, error) {
	result, err := a.store.Sync(strings.TrimSpace(input.DirectoryPath))
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, cache.SyncResult{}, err
	}
	return nil, result, nil
}

func (a *application) handleFindFiles(ctx context.Context, req *mcp.CallToolRequest, input FindFilesInput) (*mcp.CallToolResult, search.NameResult, error) {
	result, err := a.search.FindFilesByName(strings.TrimSpace(input.Query), input.Regex, orTrue(input.Safe))
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, search.NameResult{}, err
	}
	return nil, result, nil
}

func (a *application) handleSearchContent(ctx context.Context, req *mcp.CallToolRequest, input SearchContentInput) (*mcp.CallToolResult, search.ContentResult, error) {
	result, err := a.search.SearchContent(strings.TrimSpace(input.Query), input.Files, input.Regex, orTrue(input.WithSnippets), orTrue(input.Safe))
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, search.ContentResult{}, err
	}
	return nil, result, nil
}

func (a *application) handlePreviewLines(ctx context.Context, req *mcp.CallToolRequest, input PreviewLinesInput) (*mcp.CallToolResult, retrieval.LinePreview, error) {
	result, err := a.retrieval.PreviewLines(strings.TrimSpace(input.File), input.StartLine, input.EndLine, orTrue(input.Safe))
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, retrieval.LinePreview{}, err
	}
	return nil, result, nil
}

func (a *application) handlePageSegments(ctx context.Context, req *mcp.CallToolRequest, input PageSegmentsInput) (*mcp.CallToolResult, retrieval.SegmentResult, error) {
	result, err := a.retrieval.PageSegments(strings.TrimSpace(input.File), input.PageList, input.StartPage, input.EndPage, input.MaxChars)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, retrieval.SegmentResult{}, err
	}
	return nil, result, nil
}

func (a *application) handleEstimateTokens(ctx context.Context, req *mcp.CallToolRequest, input EstimateTokensInput) (*mcp.CallToolResult, retrieval.EstimateResult, error) {
	result, err := a.retrieval.EstimateTokens(input.Files, input.Selections)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, retrieval.EstimateResult{}, err
	}
	return nil, result, nil
}

func (a *application) handleReadFile(ctx context.Context, req *mcp.CallToolRequest, input ReadFileInput) (*mcp.CallToolResult, retrieval.ReadResult, error) {
	result, err := a.retrieval.ReadFile(strings.TrimSpace(input.File), input.PageList, input.StartPage, input.EndPage)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, retrieval.ReadResult{}, err
	}
	return nil, result, nil
}

func (a *application) handleServerInfo(ctx context.Context, req *mcp.CallToolRequest, input ServerInfoInput) (*mcp.CallToolResult, ServerInfoOutput, error) {
	return nil, ServerInfoOutput{
		Server:      "supersearch-mcp",
		Version:     version,
		Status:      "active",
		Root:        a.store.Root(),
		CachedFiles: a.store.Len(),
		Capabilities: []string{
			"Directory synchronization with metadata caching",
			"Filename search (substring and regex)",
			"Full-text content search with snippets",
			"Line-based preview with safe-mode limits",
			"Page-based segmentation",
			"Token usage estimation",
			"Full and partial file reading",
		},
	}, nil
}
