package specstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumaiwise/sumaiwise/internal/infrastructure/monitoring/logging"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

func writeBundleFile(t *testing.T, path string, doc map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestOpenAndCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec_bundle.json")
	writeBundleFile(t, path, bundleDoc(t))

	s, err := Open(path, logging.NewNopLogger())
	require.NoError(t, err)

	b := s.Current()
	require.NotNil(t, b)
	assert.Equal(t, "0.2.0", b.Version)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.json"), logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSpecBundleNotFound))
}

func TestOpenInvalidBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec_bundle.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path, logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSpecBundleInvalid))
}

func TestReloadSwapsBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec_bundle.json")
	doc := bundleDoc(t)
	writeBundleFile(t, path, doc)

	s, err := Open(path, logging.NewNopLogger())
	require.NoError(t, err)

	var swapped *Bundle
	s.OnSwap(func(b *Bundle) { swapped = b })

	doc["version"] = "0.2.1"
	writeBundleFile(t, path, doc)
	require.NoError(t, s.Reload())

	assert.Equal(t, "0.2.1", s.Current().Version)
	require.NotNil(t, swapped)
	assert.Equal(t, "0.2.1", swapped.Version)
}

func TestReloadKeepsPreviousBundleOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec_bundle.json")
	writeBundleFile(t, path, bundleDoc(t))

	s, err := Open(path, logging.NewNopLogger())
	require.NoError(t, err)
	old := s.Current()

	require.NoError(t, os.WriteFile(path, []byte("broken"), 0o644))
	require.Error(t, s.Reload())

	assert.Same(t, old, s.Current())
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec_bundle.json")
	doc := bundleDoc(t)
	writeBundleFile(t, path, doc)

	s, err := Open(path, logging.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Watch(ctx)
	}()

	// Give the watcher a moment to register before the write.
	time.Sleep(100 * time.Millisecond)

	doc["version"] = "0.3.0"
	writeBundleFile(t, path, doc)

	assert.Eventually(t, func() bool {
		return s.Current().Version == "0.3.0"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
