package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsearch/supersearch-mcp/internal/cache"
	"github.com/finsearch/supersearch-mcp/internal/retrieval"
	"github.com/finsearch/supersearch-mcp/internal/search"
)

func setupApp(t *testing.T) (*application, string) {
	t.Helper()
	dir := t.TempDir()

	aapl := "# Page 1\nOperator: good morning and welcome.\nRevenue grew twelve percent year over year.\n\n# Page 2\nServices momentum continued through the quarter.\n\n# Page 3\nQ&A session begins now."
	msft := "Cloud revenue accelerated; guidance raised for the full year."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL_2024Q1.md"), []byte(aapl), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MSFT_2024Q2.md"), []byte(msft), 0o644))

	store := cache.NewStore(dir, "", nil)
	return &application{
		store:     store,
		search:    search.New(store, 0, nil),
		retrieval: retrieval.New(store, 0, 0, nil),
	}, dir
}

func TestWorkflow(t *testing.T) {
	app, _ := setupApp(t)
	ctx := context.Background()

	// sync
	_, syncOut, err := app.handleSync(ctx, nil, SyncInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, syncOut.Processed)
	assert.Equal(t, 2, syncOut.NewFiles)
	assert.Equal(t, 0, syncOut.UpdatedFiles)
	assert.Equal(t, 2, syncOut.TotalCached)

	// find by name
	_, findOut, err := app.handleFindFiles(ctx, nil, FindFilesInput{Query: "AAPL"})
	require.NoError(t, err)
	require.Equal(t, 1, findOut.Count)
	assert.Equal(t, "AAPL_2024Q1.md", findOut.Results[0].File)
	assert.Equal(t, 3, findOut.Results[0].Pages)

	// search content
	_, searchOut, err := app.handleSearchContent(ctx, nil, SearchContentInput{Query: "revenue"})
	require.NoError(t, err)
	require.Equal(t, 2, searchOut.Count)
	var aaplHit *search.ContentHit
	for i := range searchOut.Results {
		if searchOut.Results[i].File == "AAPL_2024Q1.md" {
			aaplHit = &searchOut.Results[i]
		}
	}
	require.NotNil(t, aaplHit)
	assert.GreaterOrEqual(t, aaplHit.MatchCount, 1)
	require.NotEmpty(t, aaplHit.Snippets)
	assert.Contains(t, strings.ToLower(aaplHit.Snippets[0].Snippet), "revenue")

	// estimate: one page is strictly cheaper than the whole file
	rec, _ := app.store.Get("AAPL_2024Q1.md")
	_, estOut, err := app.handleEstimateTokens(ctx, nil, EstimateTokensInput{
		Files:      []string{"AAPL_2024Q1.md"},
		Selections: map[string][]int{"AAPL_2024Q1.md": {1}},
	})
	require.NoError(t, err)
	assert.Less(t, estOut.TotalEstimatedTokens, rec.EstimatedTokens)

	// read full
	_, readOut, err := app.handleReadFile(ctx, nil, ReadFileInput{File: "MSFT_2024Q2.md"})
	require.NoError(t, err)
	assert.Equal(t, "full", readOut.Mode)
	assert.Equal(t, len(readOut.Content), readOut.CharCount)

	// server info reflects the cache
	_, infoOut, err := app.handleServerInfo(ctx, nil, ServerInfoInput{})
	require.NoError(t, err)
	assert.Equal(t, "active", infoOut.Status)
	assert.Equal(t, 2, infoOut.CachedFiles)
}

func TestHandleSync_MissingDirectory(t *testing.T) {
	app, dir := setupApp(t)
	result, _, err := app.handleSync(context.Background(), nil, SyncInput{
		DirectoryPath: filepath.Join(dir, "nope"),
	})
	require.Error(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}

func TestHandlePreviewLines_SafeDefault(t *testing.T) {
	app, _ := setupApp(t)
	ctx := context.Background()
	_, _, err := app.handleSync(ctx, nil, SyncInput{})
	require.NoError(t, err)

	// safe omitted means safe=true
	_, out, err := app.handlePreviewLines(ctx, nil, PreviewLinesInput{File: "MSFT_2024Q2.md"})
	require.NoError(t, err)
	assert.False(t, out.Preview)
	assert.NotEmpty(t, out.Content)
}
