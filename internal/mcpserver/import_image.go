package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quikpix/internal/apperr"
	"github.com/starford/quikpix/internal/index"
	"github.com/starford/quikpix/internal/probe"
)

const maxImportSize = 25 << 20 // 25 MB

var (
	mimeToExt = map[string]string{
		probe.MIMEJPEG: ".jpg",
		probe.MIMEPNG:  ".png",
	}

	extToMIME = map[string]string{
		".jpg":  probe.MIMEJPEG,
		".jpeg": probe.MIMEJPEG,
		".png":  probe.MIMEPNG,
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

type importResult struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Ref      string `json:"ref,omitempty"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

func (s *Server) importImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err = cleanCategory(category)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := req.GetString("filename", "")

	var data []byte
	if strings.HasPrefix(rawURL, "data:") {
		data, err = decodeDataURI(rawURL)
	} else {
		data, err = fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxImportSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxImportSize)), nil
	}

	info, err := probe.Inspect(bytes.NewReader(data))
	if err != nil {
		return mcp.NewToolResultError("content is not a JPEG or PNG image"), nil
	}

	if filename == "" {
		filename = filenameFromURL(rawURL, mimeToExt[info.MIME])
	}
	filename = sanitizeFilename(filename, mimeToExt[info.MIME])
	ext := strings.ToLower(path.Ext(filename))
	if want, ok := extToMIME[ext]; !ok || want != info.MIME {
		return mcp.NewToolResultError(fmt.Sprintf("extension %s does not match content (detected: %s)", ext, info.MIME)), nil
	}

	savePath := category + "/" + filename
	if err := s.store.Write(savePath, data); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s", savePath)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to save image: %v", err)), nil
	}
	if err := index.IndexFile(s.db, s.store, savePath); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("saved %s but indexing failed: %v", savePath, err)), nil
	}
	s.svc.Refresh()

	out := importResult{Path: savePath, Category: category, Width: info.Width, Height: info.Height}
	if row, err := s.db.GetImageByPath(ctx, savePath); err == nil {
		if img, err := s.svc.Image(ctx, row.ID); err == nil {
			out.Ref = string(img.Ref)
		}
	}
	return jsonResult(out)
}

// cleanCategory normalises a folder key and rejects traversal.
func cleanCategory(key string) (string, error) {
	key = strings.Trim(strings.ReplaceAll(key, `\`, "/"), "/ ")
	if key == "" {
		return "", fmt.Errorf("category is required")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid category: %s", key)
	}
	for _, seg := range strings.Split(cleaned, "/") {
		if strings.HasPrefix(seg, ".") {
			return "", fmt.Errorf("invalid category: hidden folder %s", seg)
		}
	}
	return cleaned, nil
}

// decodeDataURI parses a data:[<mediatype>];base64,<data> URI.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	if mime != "" && !probe.Supported(mime) {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}
	return data, nil
}

// fetchHTTP downloads a file from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}

	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, err
	}

	client := newFetchClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxImportSize {
		return nil, fmt.Errorf("file too large: exceeds %d bytes", maxImportSize)
	}
	return data, nil
}

var (
	blockedHostnames = map[string]bool{
		"localhost":                true,
		"metadata.google.internal": true,
	}
	// Carrier-grade NAT space is not covered by net.IP.IsPrivate.
	sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}
)

// blockedIP reports whether ip is loopback, private, link-local (including
// the cloud metadata endpoint), multicast or unspecified.
func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		sharedAddressSpace.Contains(ip)
}

// checkBlockedHost rejects blocked hostnames and IP literals up front. Names
// are resolved and re-checked at dial time by dialControl.
func checkBlockedHost(host string) error {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return fmt.Errorf("missing host")
	}
	if blockedHostnames[host] || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}
	if ip := net.ParseIP(host); ip != nil && blockedIP(ip) {
		return fmt.Errorf("blocked host: private or loopback address %s", host)
	}
	return nil
}

// dialControl runs after DNS resolution for every connection attempt, so a
// name that resolves (or rebinds) to a blocked address never connects.
func dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("blocked address %s: %w", address, err)
	}
	ip := net.ParseIP(host)
	if ip == nil || blockedIP(ip) {
		return fmt.Errorf("blocked address: %s", host)
	}
	return nil
}

// newFetchClient returns a client whose connections go through dialControl.
// Proxies are disabled since the proxy address would be checked instead.
func newFetchClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: dialControl,
	}
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Proxy:               nil,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}
}

// filenameFromURL tries to extract a filename from a URL, falling back to UUID.
func filenameFromURL(rawURL, ext string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	return uuid.NewString() + ext
}

// sanitizeFilename strips path separators and unsafe characters; names
// without an extension get ext.
func sanitizeFilename(name, ext string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = safeFilenameRe.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = uuid.NewString()
	}
	if path.Ext(name) == "" {
		name += ext
	}
	return name
}
