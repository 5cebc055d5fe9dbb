// Package feed fetches the per-row intersection indices and per-cell meshes in the background
// and hands each result back to the owner of the scenes.
package feed

import (
	"bytes"
	"context"
	"path"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
	"github.com/coreman2200/funtimes-meshgrid/internal/mesh"
)

// IndexFile is the intersection index file name inside each case folder.
const IndexFile = "intersection.json"

// Handlers receive fetch results. They are called through the feed's post function, so with
// a single-threaded post they never run concurrently with each other or with the loop.
type Handlers struct {
	OnIndex func(row int, faces []int)
	OnMesh  func(row, col int, g *mesh.Geometry)
	OnError func(err error)
}

// Feed runs fetches with bounded concurrency. There are no retries; a failed asset is
// reported once through OnError and otherwise left out.
type Feed struct {
	src  Source
	sem  *semaphore.Weighted
	post func(func())
	wg   sync.WaitGroup
}

// New returns a feed reading from src. post schedules a callback on the consumer's goroutine;
// nil runs callbacks on the fetching goroutine.
func New(src Source, maxConcurrent int, post func(func())) *Feed {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Feed{src: src, sem: semaphore.NewWeighted(int64(maxConcurrent)), post: post}
}

// Start launches one fetch per case index and one per (case, method) mesh and returns at once.
// Row r corresponds to cases[r]; column c to methods[c].
func (f *Feed) Start(ctx context.Context, cases, methods []string, h Handlers) {
	for row, dir := range cases {
		f.spawn(func() { f.fetchIndex(ctx, row, path.Join(dir, IndexFile), h) })
		for col, file := range methods {
			f.spawn(func() { f.fetchMesh(ctx, row, col, path.Join(dir, file), h) })
		}
	}
}

// Wait blocks until every fetch started so far has finished and posted its result.
func (f *Feed) Wait() { f.wg.Wait() }

func (f *Feed) spawn(fn func()) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		fn()
	}()
}

// fetch reads p under the concurrency limit. A context that ends while waiting for a slot
// is an error like any other.
func (f *Feed) fetch(ctx context.Context, p string) ([]byte, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)
	return f.src.Fetch(ctx, p)
}

func (f *Feed) fetchIndex(ctx context.Context, row int, p string, h Handlers) {
	fail := func(err error) {
		f.report(h, &diagnostics.AssetFetchError{
			Kind: diagnostics.IntersectionAsset, Row: row, Col: -1, URL: f.src.URL(p), Err: err,
		})
	}
	data, err := f.fetch(ctx, p)
	if err != nil {
		fail(err)
		return
	}
	faces, err := mesh.DecodeFaceIndex(data)
	if err != nil {
		fail(err)
		return
	}
	log.Debug().Int("row", row).Int("faces", len(faces)).Str("url", f.src.URL(p)).Msg("intersection index loaded")
	if h.OnIndex != nil {
		f.post(func() { h.OnIndex(row, faces) })
	}
}

func (f *Feed) fetchMesh(ctx context.Context, row, col int, p string, h Handlers) {
	fail := func(err error) {
		f.report(h, &diagnostics.AssetFetchError{
			Kind: diagnostics.MeshAsset, Row: row, Col: col, URL: f.src.URL(p), Err: err,
		})
	}
	data, err := f.fetch(ctx, p)
	if err != nil {
		fail(err)
		return
	}
	g, err := mesh.ParseOBJ(bytes.NewReader(data))
	if err != nil {
		fail(err)
		return
	}
	log.Debug().Int("row", row).Int("col", col).Int("faces", g.FaceCount()).Str("url", f.src.URL(p)).Msg("mesh loaded")
	if h.OnMesh != nil {
		f.post(func() { h.OnMesh(row, col, g) })
	}
}

func (f *Feed) report(h Handlers, err *diagnostics.AssetFetchError) {
	ev := log.Warn().Err(err.Err).Str("kind", string(err.Kind)).Int("row", err.Row).Str("url", err.URL)
	if err.Col >= 0 {
		ev = ev.Int("col", err.Col)
	}
	ev.Msg("asset fetch failed")
	if h.OnError != nil {
		f.post(func() { h.OnError(err) })
	}
}
