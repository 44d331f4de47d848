// Package testutil provides project fixtures and file-tree assertions for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// PageHTML is an index page with one CSS and one JS build block.
const PageHTML = `<!doctype html>
<html>
<head>
  <title>Demo</title>
  <!-- build:css styles/a.css -->
  <link rel="stylesheet" href="styles/a.css">
  <!-- endbuild -->
</head>
<body>
  <h1>Demo</h1>
  <!-- build:js scripts/main.min.js -->
  <script src="scripts/main.js"></script>
  <!-- endbuild -->
</body>
</html>
`

// DemoFiles returns the files of a minimal project in the default layout: one page,
// one stylesheet, one script, the service worker runtime scripts and a package.json
// naming the project "demo-site".
func DemoFiles() map[string]string {
	return map[string]string{
		"app/index.html":                        PageHTML,
		"app/styles/a.css":                      "body { color: red; }\n",
		"app/scripts/main.js":                   "const greet = (n) => console.log(`hi ${n}`);\ngreet('demo');\n",
		"app/scripts/sw/runtime-caching.js":     "// runtime caching rules\n",
		"node_modules/sw-toolbox/sw-toolbox.js": "self.toolbox = {};\n",
		"package.json":                          `{"name": "demo-site"}`,
	}
}

// WriteTree writes files (slash-separated paths relative to root).
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

// NewSite lays out DemoFiles plus extra below a fresh temp dir and returns it.
// Entries of extra override the demo files.
func NewSite(t *testing.T, extra map[string]string) string {
	t.Helper()
	files := DemoFiles()
	for k, v := range extra {
		files[k] = v
	}
	root := t.TempDir()
	WriteTree(t, root, files)
	return root
}
