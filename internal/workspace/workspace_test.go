package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lumi/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownFilesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.md", "A.md", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.md"), 0o755))

	files, err := New(dir).MarkdownFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "A.md", filepath.Base(files[0]))
	assert.Equal(t, "b.md", filepath.Base(files[1]))
}

func TestStatusFallback(t *testing.T) {
	dir := t.TempDir()
	ws := New(dir)

	status := ws.Status()
	assert.Equal(t, "idle", status["status"])
	assert.Equal(t, "Ready for new tasks", status["message"])

	require.NoError(t, os.WriteFile(filepath.Join(dir, "status.json"), []byte("{not json"), 0o644))
	assert.Equal(t, "idle", ws.Status()["status"])

	require.NoError(t, os.WriteFile(filepath.Join(dir, "status.json"), []byte(`{"status":"working","message":"Refactoring"}`), 0o644))
	status = ws.Status()
	assert.Equal(t, "working", status["status"])
	assert.Equal(t, "Refactoring", status["message"])
}

func TestAgentFiles(t *testing.T) {
	dir := t.TempDir()
	ws := New(dir)

	_, err := ws.ReadAgentFile("main", "Soul.md")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	require.NoError(t, ws.WriteAgentFile("main", "Soul.md", "# Soul\n\nBe kind."))
	data, err := os.ReadFile(filepath.Join(dir, "SOUL.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Soul\n\nBe kind.", string(data))

	content, err := ws.ReadAgentFile("main", "Soul.md")
	require.NoError(t, err)
	assert.Equal(t, "# Soul\n\nBe kind.", content)

	for _, tc := range [][2]string{{"research", "Soul.md"}, {"main", "../etc/passwd"}, {"main", "SOUL.md"}} {
		_, err := ws.ReadAgentFile(tc[0], tc[1])
		assert.Equal(t, errors.CodeNotFound, errors.GetCode(err), "agent=%s file=%s", tc[0], tc[1])
		assert.Error(t, ws.WriteAgentFile(tc[0], tc[1], "x"))
	}
}

func TestRenderAgentFileSkipsRawHTML(t *testing.T) {
	dir := t.TempDir()
	ws := New(dir)
	require.NoError(t, ws.WriteAgentFile("main", "MEMORY.md", "# Memory\n\n<script>alert(1)</script>\n\n- item"))

	html, err := ws.RenderAgentFile("main", "MEMORY.md")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "<li>item</li>")
	assert.NotContains(t, html, "<script>")
}

func TestWatcherReportsMarkdownChanges(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 4)

	w, err := NewWatcher(dir, 20*time.Millisecond, func(path string) { changed <- path })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()
	defer func() {
		cancel()
		<-w.Done()
	}()

	// give the watcher time to register the directory
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("x"), 0o644))

	select {
	case path := <-changed:
		assert.Equal(t, "AGENTS.md", filepath.Base(path))
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}
