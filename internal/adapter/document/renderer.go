// Package document fills plain-text CV and cover letter templates from a
// session's extracted profile. It is a template stub, not a typesetter.
package document

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var slugRE = regexp.MustCompile(`[^a-z0-9]+`)

// TextRenderer implements domain.DocumentRenderer.
type TextRenderer struct {
	tmpl *template.Template
}

var _ domain.DocumentRenderer = (*TextRenderer)(nil)

// NewTextRenderer parses the embedded templates.
func NewTextRenderer() (*TextRenderer, error) {
	t, err := template.New("doc").Funcs(template.FuncMap{
		"join":  strings.Join,
		"upper": strings.ToUpper,
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("op=document.parse_templates: %w", err)
	}
	return &TextRenderer{tmpl: t}, nil
}

// Render fills the template for t. The matching section of data must be
// present.
func (r *TextRenderer) Render(_ domain.Context, t domain.DocumentType, data domain.ExtractedData) ([]byte, string, error) {
	var name string
	var owner *domain.PersonalInfo
	switch t {
	case domain.DocumentCV:
		if data.CV == nil {
			return nil, "", fmt.Errorf("op=document.render type=cv: %w: no cv data", domain.ErrInvalidArgument)
		}
		name, owner = "cv.tmpl", data.CV.Personal
	case domain.DocumentLetter:
		if data.Letter == nil {
			return nil, "", fmt.Errorf("op=document.render type=letter: %w: no letter data", domain.ErrInvalidArgument)
		}
		name, owner = "letter.tmpl", data.Letter.SenderInfo
	default:
		return nil, "", fmt.Errorf("op=document.render: %w: unknown type %q", domain.ErrInvalidArgument, t)
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, "", fmt.Errorf("op=document.render type=%s: %w", t, err)
	}
	return buf.Bytes(), filename(t, owner), nil
}

func filename(t domain.DocumentType, p *domain.PersonalInfo) string {
	slug := ""
	if p != nil {
		slug = strings.Trim(slugRE.ReplaceAllString(strings.ToLower(p.FullName()), "-"), "-")
	}
	if slug == "" {
		return string(t) + ".txt"
	}
	return string(t) + "-" + slug + ".txt"
}
