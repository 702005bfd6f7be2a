// Package mcpserver wires the lifecycle controller up to the four MCP
// tools named in §6.1, over the same stdio JSON-RPC transport and tool
// registration pattern the corpus's own MCP server uses. Every response is
// a single Markdown text block; per §6.1, tool-level failures are reported
// as human-readable text, never as RPC faults, so IsError is never set.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	xerrors "github.com/hawkxtreme/mini-ai-1c-help/internal/errors"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/lifecycle"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/store"
)

// defaultSearchLimit is search_1c_help's default result count.
const defaultSearchLimit = 5

// New builds an MCP server with all four tools registered against ctrl.
func New(ctrl *lifecycle.Controller, name, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	s := &handlers{ctrl: ctrl}

	server.AddTool(&mcp.Tool{
		Name:        "search_1c_help",
		Description: "Search the 1C:Enterprise 8.3 help corpus for topics matching a query.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "Search text",
				},
				"limit": {
					Type:        "integer",
					Description: "Maximum number of results (default 5)",
				},
				"category": {
					Type:        "string",
					Description: `One of "syntax", "query", "language", or "all" (default "all")`,
				},
			},
			Required: []string{"query"},
		},
	}, s.search)

	server.AddTool(&mcp.Tool{
		Name:        "get_1c_help_topic",
		Description: "Retrieve the full text of one help topic by its ID.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"topic_id": {
					Type:        "string",
					Description: `Topic ID in the form "<version>/<category>/<page_name>"`,
				},
			},
			Required: []string{"topic_id"},
		},
	}, s.getTopic)

	server.AddTool(&mcp.Tool{
		Name:        "list_1c_help_versions",
		Description: "Report which 1C platform version is currently indexed, and how many topics it holds.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
		},
	}, s.listVersions)

	server.AddTool(&mcp.Tool{
		Name:        "reindex_1c_help",
		Description: "Force a rebuild of the help index from the installed platform's corpus.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
		},
	}, s.reindex)

	return server
}

type handlers struct {
	ctrl *lifecycle.Controller
}

// textResult wraps a single Markdown text block. Per §6.1, every response
// is plain text; IsError is never set, even for expected failure messages.
func textResult(text string) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil
}

// openStore returns the controller's index store, or a "preparing"/
// "unavailable" message when it isn't open yet (§4.9 tool dispatch rule 1).
func (h *handlers) openStore() (*store.Store, string, bool) {
	s := h.ctrl.Store()
	if s != nil {
		return s, "", true
	}
	if h.ctrl.IsIndexing() {
		return nil, "⏳ База данных 1C справки подготавливается, попробуйте позже.", false
	}
	return nil, "⚠️ База данных 1C справки недоступна.", false
}

type searchParams struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit,omitempty"`
	Category string `json:"category,omitempty"`
}

func (h *handlers) search(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params searchParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return textResult(fmt.Sprintf("⚠️ Неверные параметры запроса: %v", err))
	}
	if strings.TrimSpace(params.Query) == "" {
		return textResult("⚠️ Параметр query не может быть пустым.")
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	category := params.Category
	if category == "" || category == "all" {
		category = ""
	}

	s, msg, ok := h.openStore()
	if !ok {
		return textResult(msg)
	}

	hits, err := s.Search(ctx, params.Query, category, limit)
	if err != nil {
		return textResult(fmt.Sprintf("⚠️ Ошибка поиска: %v", err))
	}
	if len(hits) == 0 {
		return textResult("По запросу ничего не найдено.")
	}

	var b strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, hit.Title)
		fmt.Fprintf(&b, "   ID: `%s`\n", hit.TopicID)
		fmt.Fprintf(&b, "   %s\n\n", hit.Excerpt)
	}
	return textResult(strings.TrimRight(b.String(), "\n"))
}

type getTopicParams struct {
	TopicID string `json:"topic_id"`
}

func (h *handlers) getTopic(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params getTopicParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return textResult(fmt.Sprintf("⚠️ Неверные параметры запроса: %v", err))
	}

	s, msg, ok := h.openStore()
	if !ok {
		return textResult(msg)
	}

	title, content, found, err := s.Get(ctx, params.TopicID)
	if err != nil {
		return textResult(fmt.Sprintf("⚠️ Ошибка чтения темы: %v", err))
	}
	if !found {
		return textResult(fmt.Sprintf("Тема `%s` не найдена.", params.TopicID))
	}

	return textResult(fmt.Sprintf("# %s\n\n%s", title, content))
}

func (h *handlers) listVersions(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, msg, ok := h.openStore()
	if !ok {
		return textResult(msg)
	}

	meta, err := s.ReadMeta(ctx)
	if err != nil {
		return textResult(fmt.Sprintf("⚠️ Ошибка чтения метаданных: %v", err))
	}
	if meta.Version == "" {
		return textResult("Индекс не содержит проиндексированных версий.")
	}

	return textResult(fmt.Sprintf("## Проиндексированная версия\n\n- Версия: **%s**\n- Тем: **%d**\n- Дата индексации: %s",
		meta.Version, meta.Count, meta.IndexedAt))
}

func (h *handlers) reindex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	err := h.ctrl.Reindex(ctx)
	if err == nil {
		return textResult("🔄 Переиндексация запущена.")
	}

	if _, dup := err.(*xerrors.DuplicateReindexError); dup {
		return textResult("⏳ Индексация уже выполняется, дождитесь её завершения.")
	}
	if _, missing := err.(*xerrors.PlatformMissingError); missing {
		return textResult("⚠️ Платформа 1С не найдена, переиндексация невозможна.")
	}
	return textResult(fmt.Sprintf("⚠️ Не удалось запустить переиндексацию: %v", err))
}
