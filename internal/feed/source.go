package feed

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
)

// Source resolves asset paths such as "meshes/test1/original.obj" to their bytes.
type Source interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
	// URL is the human-readable location of path, used in errors and diagnostics.
	URL(path string) string
}

type fsSource struct{ fsys fs.FS }

// FSSource reads assets from a filesystem, e.g. os.DirFS(root).
func FSSource(fsys fs.FS) Source { return fsSource{fsys: fsys} }

func (s fsSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(s.fsys, path)
}

func (s fsSource) URL(path string) string { return path }

type httpSource struct {
	base   string
	client *http.Client
}

// HTTPSource fetches assets relative to baseURL. A nil client uses http.DefaultClient.
func HTTPSource(baseURL string, client *http.Client) Source {
	if client == nil {
		client = http.DefaultClient
	}
	return httpSource{base: strings.TrimRight(baseURL, "/"), client: client}
}

func (s httpSource) URL(path string) string { return s.base + "/" + strings.TrimLeft(path, "/") }

func (s httpSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(path), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
