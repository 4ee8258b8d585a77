package sink

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jgoulah/energygoal/internal/widget"
)

// Document writes into elements of an HTML file on disk, matched by id
type Document struct {
	path string
	mu   sync.Mutex
}

// NewDocument returns a sink backed by the HTML file at path
func NewDocument(path string) *Document {
	return &Document{path: path}
}

// Path returns the backing file
func (d *Document) Path() string {
	return d.path
}

// Replace sets the inner HTML of the element with the given id and rewrites
// the file. The file is left untouched when the element is missing.
func (d *Document) Replace(ctx context.Context, id string, content template.HTML) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	doc, err := d.load()
	if err != nil {
		return err
	}

	el := findByID(doc.Selection, id)
	if el.Length() == 0 {
		return fmt.Errorf("element #%s in %s: %w", id, d.path, widget.ErrSinkNotFound)
	}
	el.SetHtml(string(content))

	out, err := doc.Html()
	if err != nil {
		return fmt.Errorf("serializing document: %w", err)
	}

	return writeFileAtomic(d.path, []byte(out))
}

// Content returns the inner HTML of the element with the given id
func (d *Document) Content(id string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, err := d.load()
	if err != nil {
		return "", err
	}
	el := findByID(doc.Selection, id)
	if el.Length() == 0 {
		return "", fmt.Errorf("element #%s in %s: %w", id, d.path, widget.ErrSinkNotFound)
	}
	return el.Html()
}

func (d *Document) load() (*goquery.Document, error) {
	f, err := os.Open(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %s: %w", d.path, widget.ErrSinkNotFound)
		}
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return doc, nil
}

// findByID compares id attributes directly so ids need no selector escaping
func findByID(sel *goquery.Selection, id string) *goquery.Selection {
	return sel.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".energygoal-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if info, err := os.Stat(path); err == nil {
		if err := tmp.Chmod(info.Mode().Perm()); err != nil {
			tmp.Close()
			return fmt.Errorf("setting file mode: %w", err)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing document: %w", err)
	}
	return nil
}
