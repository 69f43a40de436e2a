package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/kk-extractor/constants"
)

func TestFSCollector_Collect(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) string {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}
	write("a.pdf", "a")
	write("sub/b.zip", "b")
	write("sub/readme.md", "r")
	write(".hidden/c.pdf", "c")
	single := filepath.Join(t.TempDir(), "outside.pdf")
	require.NoError(t, os.WriteFile(single, []byte("o"), 0o644))

	c := NewFSCollector(true, nil)

	t.Run("Success case - directory walk filters and skips hidden", func(t *testing.T) {
		inputs, stats, err := c.Collect([]string{root})
		require.NoError(t, err)
		require.Len(t, inputs, 2)
		assert.Equal(t, "a.pdf", inputs[0].Name)
		assert.Equal(t, constants.MIMETypePDF, inputs[0].MIMEType)
		assert.Equal(t, "b.zip", inputs[1].Name)
		assert.Equal(t, constants.MIMETypeZIP, inputs[1].MIMEType)
		assert.Equal(t, uint32(2), stats.Matched)
		assert.Equal(t, uint32(1), stats.Skipped)
	})

	t.Run("Success case - explicit file", func(t *testing.T) {
		inputs, _, err := c.Collect([]string{single})
		require.NoError(t, err)
		require.Len(t, inputs, 1)
		assert.Equal(t, int64(1), inputs[0].Size)
	})

	t.Run("Error case - missing path", func(t *testing.T) {
		_, _, err := c.Collect([]string{filepath.Join(root, "nope")})
		assert.Error(t, err)
	})

	t.Run("Error case - no paths", func(t *testing.T) {
		_, _, err := c.Collect(nil)
		assert.Error(t, err)
	})
}
