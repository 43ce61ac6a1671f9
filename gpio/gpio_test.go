package gpio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSysfs lays out a sysfs gpio directory in which pin is already
// created, as the kernel would after export.
func fakeSysfs(t *testing.T, pin string) string {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "gpio"+pin), 0755))

	for _, f := range []string{"export", "unexport", "gpio" + pin + "/direction", "gpio" + pin + "/value"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), nil, 0644))
	}

	return root
}

func read(t *testing.T, path string) string {
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(b)
}

func TestRelay(t *testing.T) {
	root := fakeSysfs(t, "17")

	r, err := Open(root, 17)
	require.NoError(t, err)
	assert.Equal(t, 17, r.Pin())
	assert.Equal(t, "low", read(t, filepath.Join(root, "gpio17/direction")))
	assert.Equal(t, "", read(t, filepath.Join(root, "export")))

	require.NoError(t, r.Set(true))
	assert.Equal(t, "1", read(t, filepath.Join(root, "gpio17/value")))

	require.NoError(t, r.Press(time.Millisecond))
	assert.Equal(t, "0", read(t, filepath.Join(root, "gpio17/value")))

	require.NoError(t, r.Close())
	assert.Equal(t, "17", read(t, filepath.Join(root, "unexport")))
	assert.ErrorIs(t, r.Set(true), ErrClosed)
	assert.NoError(t, r.Close())
}

func TestOpenExports(t *testing.T) {
	saved := exportWait
	exportWait = 100 * time.Millisecond

	t.Cleanup(func() { exportWait = saved })

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "export"), nil, 0644))

	// nothing creates gpio27, so the export times out.
	_, err := Open(root, 27)
	assert.Error(t, err)
	assert.Equal(t, "27", read(t, filepath.Join(root, "export")))

	_, err = Open(filepath.Join(root, "missing"), 27)
	assert.Error(t, err)
}
