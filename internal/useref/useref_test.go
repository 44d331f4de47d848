package useref

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
)

const page = `<!doctype html>
<html>
<head>
  <!-- build:css styles/main.css -->
  <link rel="stylesheet" href="styles/a.css">
  <link rel="stylesheet" href="styles/b.css">
  <!-- endbuild -->
  <!-- build:remove -->
  <script src="scripts/livereload-dev.js"></script>
  <!-- endbuild -->
</head>
<body>
  <p>Hello</p>
  <!-- build:js scripts/main.min.js defer -->
  <script src="scripts/main.js"></script>
  <!-- endbuild -->
</body>
</html>
`

func TestProcessRewritesBlocks(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "styles"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "styles", "main.css"), []byte("x"), 0o644))

	res, err := Process("index.html", []byte(page), Options{SearchPath: []string{tmp}})
	require.NoError(t, err)

	got := string(res.HTML)
	assert.Contains(t, got, `<link rel="stylesheet" href="styles/main.css">`)
	assert.Contains(t, got, `<script src="scripts/main.min.js" defer></script>`)
	assert.NotContains(t, got, "styles/a.css")
	assert.NotContains(t, got, "scripts/main.js\"")
	assert.NotContains(t, got, "livereload-dev.js")
	assert.NotContains(t, got, "build:")
	assert.NotContains(t, got, "endbuild")
	assert.Contains(t, got, "<p>Hello</p>")

	require.Len(t, res.Blocks, 3)
	assert.Equal(t, []string{"styles/a.css", "styles/b.css"}, res.Blocks[0].Refs)
	assert.Equal(t, "remove", res.Blocks[1].Type)
	assert.Equal(t, 14, res.Blocks[2].Line)
	assert.Equal(t, []string{"scripts/main.min.js"}, res.Missing)
}

func TestProcessWithoutBlocksIsIdentity(t *testing.T) {
	src := "<!doctype html>\n<html><body>\n<!-- a normal comment -->\n<script>if (a < b) {}</script>\n</body></html>\n"
	res, err := Process("plain.html", []byte(src), Options{})
	require.NoError(t, err)
	assert.Equal(t, src, string(res.HTML))
	assert.Empty(t, res.Blocks)
}

func TestProcessAlternateSearchPath(t *testing.T) {
	alt := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(alt, "vendor.js"), []byte("x"), 0o644))
	src := "<!-- build:js(" + alt + ") vendor.js --><script src=\"a.js\"></script><!-- endbuild -->"

	res, err := Process("index.html", []byte(src), Options{SearchPath: []string{t.TempDir()}})
	require.NoError(t, err)
	assert.Empty(t, res.Missing)
	assert.Equal(t, []string{alt}, res.Blocks[0].Alt)
}

func TestProcessRelativeAlternatePathUsesBaseDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "lib.js"), []byte("x"), 0o644))
	t.Chdir(t.TempDir())
	src := "<!-- build:js(vendor) lib.js --><script src=\"a.js\"></script><!-- endbuild -->"

	res, err := Process("index.html", []byte(src), Options{BaseDir: root})
	require.NoError(t, err)
	assert.Empty(t, res.Missing)

	res, err = Process("index.html", []byte(src), Options{BaseDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib.js"}, res.Missing)
}

func TestProcessErrors(t *testing.T) {
	cases := map[string]string{
		"unterminated":   "<html><!-- build:css a.css --><link href=x></html>",
		"nested":         "<!-- build:css a.css --><!-- build:js b.js --><!-- endbuild --><!-- endbuild -->",
		"stray end":      "<p></p><!-- endbuild -->",
		"unknown type":   "<!-- build:img a.png --><!-- endbuild -->",
		"missing target": "<!-- build:js --><!-- endbuild -->",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Process("index.html", []byte(src), Options{})
			require.Error(t, err)
			assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryInput))
		})
	}
}
