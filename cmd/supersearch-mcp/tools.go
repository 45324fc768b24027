package main

import "github.com/modelcontextprotocol/go-sdk/mcp"

type (
	// SyncInput contains parameters for syncing the transcript directory.
	SyncInput struct {
		DirectoryPath string `json:"directoryPath,omitempty" jsonschema:"Directory containing transcript .md files (default: the directory the server was started with)"`
	}

	// FindFilesInput contains parameters for filename search.
	FindFilesInput struct {
		Query string `json:"query" jsonschema:"Search term: ticker, company name, or date pattern"`
		Regex bool   `json:"regex,omitempty" jsonschema:"Treat query as a case-insensitive regex (default: false)"`
		Safe  *bool  `json:"safe,omitempty" jsonschema:"Return a warning instead of results when more than the safe limit match (default: true)"`
	}

	// SearchContentInput contains parameters for full-text search.
	SearchContentInput struct {
		Query        string   `json:"query" jsonschema:"Search term: financial keywords, strategic topics, or section markers"`
		Files        []string `json:"files,omitempty" jsonschema:"Restrict the search to these cached files (default: all cached files)"`
		Regex        bool     `json:"regex,omitempty" jsonschema:"Treat query as a case-insensitive multiline regex (default: false)"`
		WithSnippets *bool    `json:"withSnippets,omitempty" jsonschema:"Include context snippets around matches (default: true)"`
		Safe         *bool    `json:"safe,omitempty" jsonschema:"Return a warning instead of results when more than the safe limit of files match (default: true)"`
	}

	// PreviewLinesInput contains parameters for a line-range preview.
	PreviewLinesInput struct {
		File      string `json:"file" jsonschema:"Transcript path from search results"`
		StartLine int    `json:"startLine,omitempty" jsonschema:"First line, 1-indexed (default: 1)"`
		EndLine   int    `json:"endLine,omitempty" jsonschema:"Last line, inclusive (default: end of file)"`
		Safe      *bool  `json:"safe,omitempty" jsonschema:"Return a warning instead of content above the preview character limit (default: true)"`
	}

	// PageSegmentsInput contains parameters for truncated page previews.
	PageSegmentsInput struct {
		File      string `json:"file" jsonschema:"Transcript path from search results"`
		PageList  []int  `json:"pageList,omitempty" jsonschema:"Specific pages to preview, e.g. [1,3,5]; overrides the range"`
		StartPage int    `json:"startPage,omitempty" jsonschema:"Range start, used when pageList is absent (default: 1)"`
		EndPage   int    `json:"endPage,omitempty" jsonschema:"Range end, used when pageList is absent (default: 2)"`
		MaxChars  int    `json:"maxChars,omitempty" jsonschema:"Per-page preview limit in characters (default: 500)"`
	}

	// EstimateTokensInput contains parameters for token-budget estimation.
	EstimateTokensInput struct {
		Files      []string         `json:"files" jsonschema:"Transcript paths to estimate"`
		Selections map[string][]int `json:"selections,omitempty" jsonschema:"Optional page selections per file, e.g. {\"file.md\": [1,3,5]}"`
	}

	// ReadFileInput contains parameters for final content retrieval.
	ReadFileInput struct {
		File      string `json:"file" jsonschema:"Transcript path to read"`
		PageList  []int  `json:"pageList,omitempty" jsonschema:"Specific pages to read; overrides the range"`
		StartPage int    `json:"startPage,omitempty" jsonschema:"Range start, used when pageList is absent"`
		EndPage   int    `json:"endPage,omitempty" jsonschema:"Range end, used when pageList is absent"`
	}

	// ServerInfoInput contains no parameters.
	ServerInfoInput struct{}

	// ServerInfoOutput describes the server and its cache state.
	ServerInfoOutput struct {
		Server       string   `json:"server"`
		Version      string   `json:"version"`
		Status       string   `json:"status"`
		Root         string   `json:"root"`
		CachedFiles  int      `json:"cachedFiles"`
		Capabilities []string `json:"capabilities"`
	}
)

func (a *application) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_directory",
		Description: "Scan the transcript directory and build or update the file metadata cache. Call this first: search and retrieval operate on cached metadata. Unchanged files are not re-read; records for deleted files are pruned.",
	}, a.handleSync)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_files_by_name",
		Description: "Search cached transcript filenames by substring or regex. Use for company, ticker, or date targeting (e.g. \"AAPL\", \"2024.*Q[1-4]\"). With safe=true (default), more than the safe limit of matches returns a warning instead of results.",
	}, a.handleFindFiles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_transcript_content",
		Description: "Full-text search across cached transcripts, re-reading content from disk. Use for thematic discovery (\"revenue\", \"guidance\", \"Q&A\"). Returns per-file match counts with up to three context snippets; files without matches are omitted.",
	}, a.handleSearchContent)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "preview_transcript_lines",
		Description: "Preview a 1-indexed inclusive line range of the cleaned transcript to validate relevance before committing tokens. With safe=true (default), previews above the character limit return a warning instead of content.",
	}, a.handlePreviewLines)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_page_segments",
		Description: "Return truncated per-page previews of a transcript for section-based validation of large files. Each segment carries the untruncated page's token estimate, so use it to plan which pages to read in full.",
	}, a.handlePageSegments)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "calculate_token_usage",
		Description: "Estimate total tokens for a set of transcripts before reading. Whole-file estimates come from cached metadata; page selections are re-read and summed. A warning is attached when the total exceeds the context budget.",
	}, a.handleEstimateTokens)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_transcript_file",
		Description: "Read cleaned transcript content: the whole file, an explicit page list, or a page range. Page selections are reassembled with their \"# Page N\" markers. This is the final retrieval step after validation and token planning.",
	}, a.handleReadFile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "server_info",
		Description: "Report server status, the transcript root, and the number of cached files.",
	}, a.handleServerInfo)
}
