package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/noah-isme/banner-pricing/internal/order"
	"github.com/noah-isme/banner-pricing/internal/present"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer turns a priced order into a confirmation email. It only lays out
// the present views; it never computes amounts.
type Renderer struct {
	html   *template.Template
	text   *texttemplate.Template
	footer template.HTML
}

// NewRenderer parses the embedded templates and converts the optional
// Markdown footer into sanitised HTML.
func NewRenderer(footerMarkdown string) (*Renderer, error) {
	html, err := template.ParseFS(templateFS, "templates/confirmation.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/confirmation.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text template: %w", err)
	}
	footer, err := markdownHTML(footerMarkdown)
	if err != nil {
		return nil, err
	}
	return &Renderer{html: html, text: text, footer: footer}, nil
}

func markdownHTML(src string) (template.HTML, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render footer markdown: %w", err)
	}
	return template.HTML(bluemonday.UGCPolicy().SanitizeBytes(buf.Bytes())), nil
}

type confirmationData struct {
	Subject string
	Placed  string
	Order   order.Order
	Quote   present.QuoteView
	Footer  template.HTML
}

// Confirmation renders the confirmation email for o.
func (r *Renderer) Confirmation(o order.Order, view present.QuoteView) (Message, error) {
	data := confirmationData{
		Subject: fmt.Sprintf("Order %s confirmed: %s", o.Number, view.Totals.Total),
		Placed:  o.CreatedAt.UTC().Format("January 2, 2006"),
		Order:   o,
		Quote:   view,
		Footer:  r.footer,
	}
	var html, text bytes.Buffer
	if err := r.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	if err := r.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	return Message{To: o.Email, Subject: data.Subject, HTML: html.String(), Text: text.String()}, nil
}
