// Package illustration downloads generated images into a local cache so the reader can open
// them outside the terminal.
package illustration

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	cacheEnvVar        = "ADVENTURE_CACHE_DIR"
	cacheSubdir        = "adventure/illustrations"
	cacheTTL           = 24 * time.Hour
	partialSuffix      = ".part"
	metaSuffix         = ".meta"
	defaultExtension   = ".png"
	defaultHTTPTimeout = 90 * time.Second
)

// Cache stores downloaded illustrations keyed by their URL.
type Cache struct {
	dir    string
	client *http.Client
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

// NewCache creates the cache directory. An empty dir falls back to $ADVENTURE_CACHE_DIR and then
// to the user cache directory.
func NewCache(dir string, client *http.Client) (*Cache, error) {
	if dir == "" {
		dir = os.Getenv(cacheEnvVar)
	}
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.TempDir(), "adventure-cache")
		}
		dir = filepath.Join(base, cacheSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Cache{dir: dir, client: client}, nil
}

// Dir is where files are written.
func (c *Cache) Dir() string { return c.dir }

// Fetch returns a local path holding the image behind imageURL, downloading it when needed.
func (c *Cache) Fetch(ctx context.Context, imageURL string) (string, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return "", fmt.Errorf("illustration URL is empty")
	}
	if strings.HasPrefix(imageURL, "data:") {
		return c.storeDataURL(imageURL)
	}

	key := cacheKey(imageURL)
	imagePath, metaPath, partialPath := c.pathsFor(key, extensionFor(imageURL))

	if info, err := os.Stat(imagePath); err == nil && time.Since(info.ModTime()) < cacheTTL && info.Size() > 0 {
		return imagePath, nil
	}

	meta, _ := readMeta(metaPath)
	info, _ := os.Stat(imagePath)
	p, err := c.download(ctx, imageURL, imagePath, metaPath, partialPath, meta, info)
	if err == nil {
		return p, nil
	}
	if info != nil && info.Size() > 0 {
		return imagePath, nil
	}
	return "", err
}

func (c *Cache) download(ctx context.Context, imageURL, imagePath, metaPath, partialPath string, meta cacheMeta, current os.FileInfo) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	if current != nil && current.Size() > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	var partialSize int64
	if info, err := os.Stat(partialPath); err == nil && info.Size() > 0 {
		partialSize = info.Size()
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", partialSize))
		if meta.ETag != "" {
			req.Header.Set("If-Range", meta.ETag)
		} else if meta.LastModified != "" {
			req.Header.Set("If-Range", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if current != nil && current.Size() > 0 {
			meta.CachedAt = time.Now().UTC()
			// Touch the file so the TTL check treats it as fresh again.
			now := time.Now()
			_ = os.Chtimes(imagePath, now, now)
			if err := writeMeta(metaPath, meta); err != nil {
				return "", err
			}
			return imagePath, nil
		}
		return c.download(ctx, imageURL, imagePath, metaPath, partialPath, cacheMeta{}, nil)
	case http.StatusOK:
		return c.saveBody(resp, imagePath, metaPath, partialPath, false)
	case http.StatusPartialContent:
		return c.saveBody(resp, imagePath, metaPath, partialPath, partialSize > 0)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("illustration download failed: %s (%s)", resp.Status, string(body))
	}
}

func (c *Cache) saveBody(resp *http.Response, imagePath, metaPath, partialPath string, appendExisting bool) (string, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendExisting {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(partialPath, flags, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(partialPath, imagePath); err != nil {
		return "", err
	}

	meta := cacheMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		CachedAt:     time.Now().UTC(),
	}
	if info, err := os.Stat(imagePath); err == nil {
		meta.Size = info.Size()
	}
	if err := writeMeta(metaPath, meta); err != nil {
		return "", err
	}
	return imagePath, nil
}

// storeDataURL decodes data:<mime>;base64,<payload> URLs without touching the network.
func (c *Cache) storeDataURL(dataURL string) (string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
	if !ok {
		return "", fmt.Errorf("malformed data URL")
	}
	if !strings.HasSuffix(header, ";base64") {
		return "", fmt.Errorf("unsupported data URL encoding %q", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode data URL: %w", err)
	}
	ext := defaultExtension
	if exts, err := mime.ExtensionsByType(strings.TrimSuffix(header, ";base64")); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	imagePath, _, _ := c.pathsFor(cacheKey(dataURL), ext)
	if info, err := os.Stat(imagePath); err == nil && info.Size() == int64(len(data)) {
		return imagePath, nil
	}
	if err := os.WriteFile(imagePath, data, 0o644); err != nil {
		return "", err
	}
	return imagePath, nil
}

func (c *Cache) pathsFor(key, ext string) (string, string, string) {
	return filepath.Join(c.dir, key+ext), filepath.Join(c.dir, key+metaSuffix), filepath.Join(c.dir, key+partialSuffix)
}

func cacheKey(imageURL string) string {
	sum := sha1.Sum([]byte(imageURL))
	return hex.EncodeToString(sum[:])
}

func extensionFor(imageURL string) string {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return defaultExtension
	}
	switch ext := strings.ToLower(path.Ext(parsed.Path)); ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return ext
	default:
		return defaultExtension
	}
}

func readMeta(path string) (cacheMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cacheMeta{}, err
	}
	var meta cacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func writeMeta(path string, meta cacheMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
