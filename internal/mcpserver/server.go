// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes quikpix gallery tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quikpix/internal/apperr"
	"github.com/starford/quikpix/internal/gallery"
	"github.com/starford/quikpix/internal/index"
	"github.com/starford/quikpix/internal/storage"
)

const (
	guideURI       = "quikpix://guide"
	refreshTimeout = 2 * time.Minute
)

// Server wraps the MCP server with quikpix tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *gallery.Service
	db    *index.DB
	store storage.Provider
}

// New creates a new MCP server with all gallery tools registered.
func New(svc *gallery.Service, db *index.DB, store storage.Provider) *Server {
	s := &Server{svc: svc, db: db, store: store}

	s.mcp = server.NewMCPServer(
		"quikpix",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List photo categories (one per folder) with image counts and thumbnail refs."),
		mcp.WithString("sort", mcp.Description("Sort mode: recent (default), name, count or pinned")),
		mcp.WithBoolean("include_hidden", mcp.Description("Also list categories the user hid")),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("list_category_images",
		mcp.WithDescription("List the images of one category, most recently taken first."),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category key, e.g. DCIM/Camera")),
		mcp.WithNumber("limit", mcp.Description("Max images (default: server result limit)")),
	), s.listCategoryImages)

	s.mcp.AddTool(mcp.NewTool("search_images",
		mcp.WithDescription("Search images by file or folder name."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchImages)

	s.mcp.AddTool(mcp.NewTool("get_image",
		mcp.WithDescription("Get metadata (size, dimensions, MIME type, category) of one image."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Image id, the last segment of an image ref")),
	), s.getImage)

	s.mcp.AddTool(mcp.NewTool("library_status",
		mcp.WithDescription("Report the category scan status: idle, loading, ready, empty or error."),
	), s.libraryStatus)

	s.mcp.AddTool(mcp.NewTool("refresh_library",
		mcp.WithDescription("Rescan the media index into categories and wait for the result."),
	), s.refreshLibrary)

	s.mcp.AddTool(mcp.NewTool("import_image",
		mcp.WithDescription("Save a JPEG or PNG from an http(s) URL or base64 data URI into a category folder. "+
			"Read the gallery guide (get_gallery_guide or the quikpix://guide resource) first."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Destination category key (folder), e.g. Pictures/Imports")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
	), s.importImage)

	s.mcp.AddTool(mcp.NewTool("get_gallery_guide",
		mcp.WithDescription("Returns the guide to categories, sort modes and image refs."),
	), s.getGalleryGuide)

	// Resource: gallery guide.
	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Gallery Guide",
			mcp.WithResourceDescription("How quikpix categories, image refs and sorting work."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrSourceUnavailable):
		return mcp.NewToolResultError("media source unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) listCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cats, snap, err := s.svc.Categories(ctx, req.GetString("sort", ""))
	if err != nil {
		return errorResult(err), nil
	}
	out := map[string]any{
		"status":     snap.Status,
		"generation": snap.Generation,
		"categories": cats,
	}
	if req.GetBool("include_hidden", false) {
		hidden, err := s.svc.HiddenCategories(ctx)
		if err != nil {
			return errorResult(err), nil
		}
		out["hidden"] = hidden
	}
	return jsonResult(out)
}

func (s *Server) listCategoryImages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	images, err := s.svc.Images(ctx, key, req.GetInt("limit", 0))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(images)
}

func (s *Server) searchImages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(results)
}

func (s *Server) getImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid image id: %s", raw)), nil
	}
	img, err := s.svc.Image(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(img)
}

func (s *Server) libraryStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Status())
}

func (s *Server) refreshLibrary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	snap, err := s.svc.RefreshAndWait(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(snap)
}

func (s *Server) getGalleryGuide(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(GalleryGuide), nil
}

func (s *Server) readGuideResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     GalleryGuide,
		},
	}, nil
}
