package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/genzugar/backend/fs"
)

// emailTemplates is loaded from the embedded templates on first use.
var emailTemplates = &templateSet{fsys: appfs.FS, dir: appfs.EmailTemplatesDir}

// emailContext is the dot of every email template.
type emailContext struct {
	FrontendBaseURL string
	Data            interface{}
}

// templateSet holds the text and html variants of each email, keyed by name.
// A file named "_base.<ext>" is a layout parsed along every template with the same extension.
type templateSet struct {
	fsys fs.FS
	dir  string

	once    sync.Once
	loadErr error
	text    map[string]*texttmpl.Template
	html    map[string]*htmltmpl.Template
}

// render executes both variants of name. A missing variant renders as "", but a name with no variant
// at all is an error.
func (ts *templateSet) render(name string, data emailContext) (text, html string, err error) {
	ts.once.Do(func() { ts.loadErr = ts.load() })
	if ts.loadErr != nil {
		return "", "", ts.loadErr
	}

	tt, hasText := ts.text[name]
	ht, hasHTML := ts.html[name]
	if !hasText && !hasHTML {
		return "", "", errors.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if hasText {
		if err := tt.Execute(&buf, data); err != nil {
			return "", "", errors.Wrap(err, "executing text template")
		}
		text = strings.TrimSpace(buf.String())
		buf.Reset()
	}
	if hasHTML {
		if err := ht.Execute(&buf, data); err != nil {
			return "", "", errors.Wrap(err, "executing html template")
		}
		html = strings.TrimSpace(buf.String())
	}
	return text, html, nil
}

func (ts *templateSet) load() error {
	ts.text = make(map[string]*texttmpl.Template)
	ts.html = make(map[string]*htmltmpl.Template)

	entries, err := fs.ReadDir(ts.fsys, ts.dir)
	if err != nil {
		return errors.Wrap(err, "listing email templates")
	}
	// templates referencing a missing key fail loudly outside of production
	strict := Conf.Debug || Conf.TestMode

	for _, entry := range entries {
		fname := entry.Name()
		if entry.IsDir() || strings.HasPrefix(fname, "_") {
			continue
		}
		ext := path.Ext(fname)
		name := strings.TrimSuffix(fname, ext)
		files := []string{path.Join(ts.dir, fname), path.Join(ts.dir, "_base"+ext)}

		switch ext {
		case ".txt":
			t, err := texttmpl.ParseFS(ts.fsys, files...)
			if err != nil {
				return errors.Wrapf(err, "parsing %s", fname)
			}
			if strict {
				t.Option("missingkey=error")
			}
			ts.text[name] = t
		case ".gohtml":
			t, err := htmltmpl.ParseFS(ts.fsys, files...)
			if err != nil {
				return errors.Wrapf(err, "parsing %s", fname)
			}
			if strict {
				t.Option("missingkey=error")
			}
			ts.html[name] = t
		}
	}
	return nil
}
