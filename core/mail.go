package core

import (
	"bytes"
	"context"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/campus/fs"
)

var (
	emailTemplates = newTemplateSet("templates/email")
	smsTemplates   = newTemplateSet("templates/sms")
)

type (
	// templateSet holds the text and html templates of one directory of `appfs.FS`, keyed by name (without ext).
	// Templates are parsed once, on first use. Files starting with `_` are layouts shared by every template.
	templateSet struct {
		dir  string
		once sync.Once
		text map[string]*texttmpl.Template
		html map[string]*htmltmpl.Template
		err  error
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	EmailMessage struct {
		From    *mail.Address // optional, overrides the service's default sender
		To      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// Send renders and delivers `msg` synchronously.
		Send(ctx context.Context, msg *EmailMessage) error
	}
)

func newTemplateSet(dir string) *templateSet {
	return &templateSet{dir: dir}
}

func (ts *templateSet) load() error {
	ts.once.Do(func() {
		ts.text = make(map[string]*texttmpl.Template)
		ts.html = make(map[string]*htmltmpl.Template)

		entries, err := fs.ReadDir(appfs.FS, ts.dir)
		if err != nil {
			ts.err = errors.Wrap(err, "reading templates dir "+ts.dir)
			return
		}

		var textBase, htmlBase []string
		for _, e := range entries {
			switch name := e.Name(); {
			case strings.HasPrefix(name, "_") && path.Ext(name) == ".txt":
				textBase = append(textBase, path.Join(ts.dir, name))
			case strings.HasPrefix(name, "_") && path.Ext(name) == ".gohtml":
				htmlBase = append(htmlBase, path.Join(ts.dir, name))
			}
		}

		for _, e := range entries {
			fname := e.Name()
			ext := path.Ext(fname)
			if e.IsDir() || strings.HasPrefix(fname, "_") {
				continue
			}
			name := strings.TrimSuffix(fname, ext)
			patterns := []string{path.Join(ts.dir, fname)}

			switch ext {
			case ".txt":
				tmpl, err := texttmpl.New(fname).Option("missingkey=error").ParseFS(appfs.FS, append(textBase, patterns...)...)
				if err != nil {
					ts.err = errors.Wrap(err, "parsing template "+fname)
					return
				}
				ts.text[name] = tmpl
			case ".gohtml":
				tmpl, err := htmltmpl.New(fname).Option("missingkey=error").ParseFS(appfs.FS, append(htmlBase, patterns...)...)
				if err != nil {
					ts.err = errors.Wrap(err, "parsing template "+fname)
					return
				}
				ts.html[name] = tmpl
			}
		}
	})
	return ts.err
}

// executes the base layout when there is one, the named template otherwise.
func (ts *templateSet) renderText(name string, data ContextData) (string, bool, error) {
	if err := ts.load(); err != nil {
		return "", false, err
	}
	tmpl, ok := ts.text[name]
	if !ok {
		return "", false, nil
	}
	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, entryTemplate(tmpl.Lookup("base") != nil, name+".txt"), data); err != nil {
		return "", true, errors.Wrap(err, "rendering "+name+".txt")
	}
	return buff.String(), true, nil
}

func (ts *templateSet) renderHTML(name string, data ContextData) (string, bool, error) {
	if err := ts.load(); err != nil {
		return "", false, err
	}
	tmpl, ok := ts.html[name]
	if !ok {
		return "", false, nil
	}
	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, entryTemplate(tmpl.Lookup("base") != nil, name+".gohtml"), data); err != nil {
		return "", true, errors.Wrap(err, "rendering "+name+".gohtml")
	}
	return buff.String(), true, nil
}

func entryTemplate(hasBase bool, fname string) string {
	if hasBase {
		return "base"
	}
	return fname
}

// Render fills TextContent and HTMLContent from BodyStr or from the named template.
func (m *EmailMessage) Render(data ContextData) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.TemplateName == "" {
		return nil
	}

	data.Data = m.TemplateData
	text, found, err := emailTemplates.renderText(m.TemplateName, data)
	if err != nil {
		return err
	}
	html, foundHTML, err := emailTemplates.renderHTML(m.TemplateName, data)
	if err != nil {
		return err
	}
	if !found && !foundHTML {
		return errors.Errorf("email template %q not found", m.TemplateName)
	}
	m.TextContent = strings.TrimSpace(text)
	m.HTMLContent = html
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
