package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/YauheniMa/witcher-bot/internal/config"
	witchererrors "github.com/YauheniMa/witcher-bot/internal/errors"
	"github.com/YauheniMa/witcher-bot/internal/scene"
	"github.com/YauheniMa/witcher-bot/internal/search"
	"github.com/YauheniMa/witcher-bot/pkg/version"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "witcher"

// Searcher is the part of the search engine the server needs.
type Searcher interface {
	SmartSearch(ctx context.Context, query string, opts search.Options) (*search.Response, error)
	Scenes() *scene.Store
}

// Server is the MCP server. It bridges AI clients with the scene search
// engine.
type Server struct {
	mcp    *mcp.Server
	engine Searcher
	config *config.Config
	logger *slog.Logger
}

// NewServer creates a new MCP server and registers its tools.
func NewServer(engine Searcher, cfg *config.Config) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine: engine,
		config: cfg,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolSmartSearch,
		Description: tools[0].Description,
	}, s.mcpSmartSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolGetScene,
		Description: tools[1].Description,
	}, s.mcpGetSceneHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// CallTool invokes a tool by name with JSON-style arguments and returns
// its structured output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSmartSearch:
		var in SmartSearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, out, err := s.mcpSmartSearchHandler(ctx, nil, in)
		if err != nil {
			return nil, err
		}
		return out, nil
	case ToolGetScene:
		var in GetSceneInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, out, err := s.mcpGetSceneHandler(ctx, nil, in)
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, NewToolNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) mcpSmartSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SmartSearchInput) (
	*mcp.CallToolResult,
	SmartSearchOutput,
	error,
) {
	start := time.Now()
	opts := search.Options{
		TopKLexical:        input.TopKBM25,
		TopKSemantic:       input.TopKSemantic,
		MustHaveCharacters: input.MustHaveCharacters,
		Limit:              clampLimit(input.Limit, DefaultLimit, 1, MaxLimit),
		Explain:            input.Explain,
	}

	resp, err := s.engine.SmartSearch(ctx, input.Query, opts)
	if err != nil {
		attrs := append([]slog.Attr{
			slog.String("tool", ToolSmartSearch),
			slog.Duration("duration", time.Since(start)),
		}, witchererrors.LogAttrs(err)...)
		s.logger.LogAttrs(ctx, slog.LevelError, "tool_call_failed", attrs...)
		return nil, SmartSearchOutput{}, MapError(err)
	}

	s.logger.Info("tool_call_completed",
		slog.String("tool", ToolSmartSearch),
		slog.String("request_id", resp.RequestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(resp.Hits)))

	words := s.config.Search.SnippetWords
	result := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatSearchResults(resp, words)}},
	}
	return result, ToSmartSearchOutput(resp, words), nil
}

func (s *Server) mcpGetSceneHandler(_ context.Context, _ *mcp.CallToolRequest, input GetSceneInput) (
	*mcp.CallToolResult,
	GetSceneOutput,
	error,
) {
	id := strings.TrimSpace(input.SceneID)
	if id == "" {
		return nil, GetSceneOutput{}, NewInvalidParamsError("scene_id parameter is required")
	}

	sc, pos, ok := s.engine.Scenes().ByID(id)
	if !ok {
		s.logger.Debug("scene_not_found", slog.String("scene_id", id))
		return nil, GetSceneOutput{}, NewSceneNotFoundError(id)
	}
	return nil, ToGetSceneOutput(sc, pos), nil
}

// Serve runs the server on the configured transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	if transport == "" {
		transport = "stdio"
	}
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
