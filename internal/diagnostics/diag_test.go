package diagnostics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorAssetFetch(t *testing.T) {
	base := errors.New("404")
	err := fmt.Errorf("load: %w", &AssetFetchError{Kind: MeshAsset, Row: 1, Col: 2, URL: "meshes/test2/pymesh.obj", Err: base})

	d := FromError(err)
	assert.Equal(t, "ASSET.FETCH", d.Code)
	assert.Equal(t, Warn, d.Severity)
	assert.Equal(t, 2, d.Evidence["col"])
	assert.True(t, errors.Is(err, base))
}

func TestFromErrorRowAssetHasNoColumn(t *testing.T) {
	d := FromError(&AssetFetchError{Kind: IntersectionAsset, Row: 0, Col: -1, URL: "x", Err: errors.New("bad json")})
	_, ok := d.Evidence["col"]
	assert.False(t, ok)
}

func TestFromErrorConfiguration(t *testing.T) {
	d := FromError(Configf("layout.rows", "must be > 0, got %d", 0))
	assert.Equal(t, "CONFIG.INVALID", d.Code)
	assert.Equal(t, Err, d.Severity)
	assert.Contains(t, d.Detail, "layout.rows")
}

func TestFromErrorOther(t *testing.T) {
	assert.Equal(t, "INTERNAL", FromError(errors.New("boom")).Code)
}
