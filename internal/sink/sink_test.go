package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/energygoal/internal/widget"
)

const testPage = `<!DOCTYPE html>
<html><head><title>Energy</title></head>
<body>
<div id="energy-goal"><p>loading...</p></div>
<div id="other">keep me</div>
</body></html>`

func TestMemoryReplace(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("goal")

	require.NoError(t, m.Replace(ctx, "goal", "<b>first</b>"))
	require.NoError(t, m.Replace(ctx, "goal", "<b>second</b>"))

	content, ok := m.Content("goal")
	require.True(t, ok)
	assert.Equal(t, "<b>second</b>", string(content))

	err := m.Replace(ctx, "missing", "<b>x</b>")
	assert.ErrorIs(t, err, widget.ErrSinkNotFound)
	_, ok = m.Content("missing")
	assert.False(t, ok)
}

func TestMemoryReplaceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory("goal")
	assert.ErrorIs(t, m.Replace(ctx, "goal", "x"), context.Canceled)
	content, _ := m.Content("goal")
	assert.Empty(t, content)
}

func TestMemoryConcurrentWriters(t *testing.T) {
	m := NewMemory("goal")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Replace(context.Background(), "goal", "<i>w</i>")
		}()
	}
	wg.Wait()

	content, _ := m.Content("goal")
	assert.Equal(t, "<i>w</i>", string(content))
}

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte(testPage), 0644))
	return path
}

func TestDocumentReplace(t *testing.T) {
	path := writePage(t)
	d := NewDocument(path)
	before, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, d.Replace(context.Background(), "energy-goal", `<table class="energy-goal"><tr><td>47 kWh</td></tr></table>`))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)

	target := doc.Find("#energy-goal")
	assert.Equal(t, 0, target.Find("p").Length(), "previous content must be gone")
	assert.Equal(t, "47 kWh", strings.TrimSpace(target.Find("td").Text()))
	assert.Equal(t, "keep me", doc.Find("#other").Text())
	assert.Equal(t, "Energy", doc.Find("title").Text())

	content, err := d.Content("energy-goal")
	require.NoError(t, err)
	assert.Contains(t, content, "47 kWh")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.Mode().Perm(), info.Mode().Perm())
}

func TestDocumentMissingElement(t *testing.T) {
	path := writePage(t)
	d := NewDocument(path)

	err := d.Replace(context.Background(), "nope", "<b>x</b>")
	assert.ErrorIs(t, err, widget.ErrSinkNotFound)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testPage, string(data), "document must be untouched")

	_, err = d.Content("nope")
	assert.ErrorIs(t, err, widget.ErrSinkNotFound)
}

func TestDocumentMissingFile(t *testing.T) {
	d := NewDocument(filepath.Join(t.TempDir(), "absent.html"))
	err := d.Replace(context.Background(), "energy-goal", "<b>x</b>")
	assert.ErrorIs(t, err, widget.ErrSinkNotFound)
}

// Browser tests need a local Chrome install
func TestBrowserReplace(t *testing.T) {
	if os.Getenv("ENERGYGOAL_BROWSER_TESTS") == "" {
		t.Skip("set ENERGYGOAL_BROWSER_TESTS=1 to run headless Chrome tests")
	}

	path := writePage(t)
	b, err := NewBrowser(context.Background(), "file://"+path, BrowserOptions{})
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Replace(ctx, "energy-goal", "<span>47 kWh</span>"))

	content, err := b.Content(ctx, "energy-goal")
	require.NoError(t, err)
	assert.Equal(t, "<span>47 kWh</span>", content)

	assert.ErrorIs(t, b.Replace(ctx, "nope", "<b>x</b>"), widget.ErrSinkNotFound)

	png, err := b.Screenshot(ctx, "energy-goal")
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}
