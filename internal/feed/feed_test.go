package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
	"github.com/coreman2200/funtimes-meshgrid/internal/mesh"
)

const tri = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

type collector struct {
	mu      sync.Mutex
	indices map[int][]int
	meshes  map[[2]int]*mesh.Geometry
	errs    []error
}

func newCollector() *collector {
	return &collector{indices: map[int][]int{}, meshes: map[[2]int]*mesh.Geometry{}}
}

func (c *collector) handlers() Handlers {
	return Handlers{
		OnIndex: func(row int, faces []int) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.indices[row] = faces
		},
		OnMesh: func(row, col int, g *mesh.Geometry) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.meshes[[2]int{row, col}] = g
		},
		OnError: func(err error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.errs = append(c.errs, err)
		},
	}
}

func TestFeedFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"meshes/test1/intersection.json": {Data: []byte(`[0]`)},
		"meshes/test1/original.obj":      {Data: []byte(tri)},
		"meshes/test1/pymesh.obj":        {Data: []byte(tri)},
		"meshes/test2/original.obj":      {Data: []byte("v 0 0\n")},
		"meshes/test2/intersection.json": {Data: []byte(`not json`)},
	}
	c := newCollector()
	f := New(FSSource(fsys), 2, nil)
	f.Start(context.Background(), []string{"meshes/test1/", "meshes/test2/"}, []string{"original.obj", "pymesh.obj"}, c.handlers())
	f.Wait()

	assert.Equal(t, []int{0}, c.indices[0])
	assert.Len(t, c.indices, 1)
	assert.Len(t, c.meshes, 2)
	assert.Equal(t, 1, c.meshes[[2]int{0, 1}].FaceCount())

	// test2: bad index, bad mesh, missing mesh
	require.Len(t, c.errs, 3)
	kinds := map[diagnostics.AssetKind]int{}
	for _, err := range c.errs {
		var fe *diagnostics.AssetFetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, 1, fe.Row)
		kinds[fe.Kind]++
		if fe.Kind == diagnostics.IntersectionAsset {
			assert.Equal(t, -1, fe.Col)
			assert.Equal(t, "meshes/test2/intersection.json", fe.URL)
		}
	}
	assert.Equal(t, 1, kinds[diagnostics.IntersectionAsset])
	assert.Equal(t, 2, kinds[diagnostics.MeshAsset])
}

func TestFeedPostsThroughConsumer(t *testing.T) {
	fsys := fstest.MapFS{
		"a/intersection.json": {Data: []byte(`[1,2]`)},
		"a/m.obj":             {Data: []byte(tri)},
	}
	var (
		mu     sync.Mutex
		posted int
	)
	post := func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		posted++
		fn()
	}
	c := newCollector()
	f := New(FSSource(fsys), 0, post)
	f.Start(context.Background(), []string{"a"}, []string{"m.obj"}, c.handlers())
	f.Wait()
	assert.Equal(t, 2, posted)
}

func TestFeedCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newCollector()
	f := New(FSSource(fstest.MapFS{}), 1, nil)
	f.Start(ctx, []string{"x"}, []string{"m.obj"}, c.handlers())
	f.Wait()
	assert.Empty(t, c.meshes)
	assert.Empty(t, c.indices)
	require.Len(t, c.errs, 2)
	for _, err := range c.errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

// stallSource blocks every fetch until the context ends.
type stallSource struct{}

func (stallSource) Fetch(ctx context.Context, _ string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stallSource) URL(p string) string { return "stall://" + p }

func TestFeedTimeoutReportsQueuedAssets(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c := newCollector()
	f := New(stallSource{}, 1, nil)
	f.Start(ctx, []string{"case"}, []string{"a.obj", "b.obj", "c.obj"}, c.handlers())
	f.Wait()

	require.Len(t, c.errs, 4)
	urls := map[string]bool{}
	for _, err := range c.errs {
		var fe *diagnostics.AssetFetchError
		require.True(t, errors.As(err, &fe))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		urls[fe.URL] = true
	}
	assert.Len(t, urls, 4)
	assert.True(t, urls["stall://case/intersection.json"])
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/meshes/test1/intersection.json":
			_, _ = w.Write([]byte(`[2, 0]`))
		case "/meshes/test1/original.obj":
			_, _ = w.Write([]byte(tri))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := HTTPSource(srv.URL+"/", srv.Client())
	assert.Equal(t, srv.URL+"/meshes/test1/original.obj", src.URL("meshes/test1/original.obj"))

	c := newCollector()
	f := New(src, 4, nil)
	f.Start(context.Background(), []string{"meshes/test1/"}, []string{"original.obj", "meshlib.obj"}, c.handlers())
	f.Wait()

	assert.Equal(t, []int{2, 0}, c.indices[0])
	assert.Contains(t, c.meshes, [2]int{0, 0})
	require.Len(t, c.errs, 1)
	var fe *diagnostics.AssetFetchError
	require.True(t, errors.As(c.errs[0], &fe))
	assert.Equal(t, 1, fe.Col)
	assert.Contains(t, fe.Error(), "404")
}
