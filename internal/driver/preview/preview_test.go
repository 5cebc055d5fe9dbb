package preview

import (
	"bytes"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewThrottlesAndEncodes(t *testing.T) {
	var got [][]byte
	d := New(50*time.Millisecond, func(b []byte) { got = append(got, b) })
	clock := time.Unix(100, 0)
	d.now = func() time.Time { return clock }

	src := image.NewRGBA(image.Rect(0, 0, 8, 6))
	require.NoError(t, d.Draw(d.Bounds(), src, image.Point{}))
	clock = clock.Add(10 * time.Millisecond)
	require.NoError(t, d.Draw(d.Bounds(), src, image.Point{}))
	assert.Len(t, got, 1)

	clock = clock.Add(60 * time.Millisecond)
	require.NoError(t, d.Draw(d.Bounds(), src, image.Point{}))
	assert.Len(t, got, 2)

	img, err := png.Decode(bytes.NewReader(d.Latest()))
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), img.Bounds())
	assert.Equal(t, src.Bounds(), d.Bounds())
}
