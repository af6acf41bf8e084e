package render

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"

	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
)

// GoldmarkRenderer is the built-in DocumentRenderer. It converts Markdown
// markup into a standalone HTML document and writes it to the output path.
// A <base> element pointing at the workspace directory makes relative
// resource references (images, stylesheets) resolve inside the workspace.
type GoldmarkRenderer struct {
	md goldmark.Markdown
	// StylesheetName, when present in the workspace, is linked from the
	// generated document.
	StylesheetName string
}

// NewDocumentRenderer creates the default goldmark-backed renderer.
func NewDocumentRenderer() *GoldmarkRenderer {
	return &GoldmarkRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(ghtml.WithUnsafe()),
		),
		StylesheetName: "styles.css",
	}
}

func (r *GoldmarkRenderer) Render(markup string, outputPath string, baseDir string) error {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(markup), &body); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRender, "failed to convert markup").Build()
	}

	// The workspace path goes through URL and HTML escaping; quotes or
	// spaces in a directory name must not break the base element.
	baseHref := (&url.URL{Scheme: "file", Path: baseDir + "/"}).String()

	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&doc, "<base href=\"%s\">\n", html.EscapeString(baseHref))
	if r.StylesheetName != "" {
		if _, err := os.Stat(filepath.Join(baseDir, r.StylesheetName)); err == nil {
			fmt.Fprintf(&doc, "<link rel=\"stylesheet\" href=\"%s\">\n", html.EscapeString(r.StylesheetName))
		}
	}
	doc.WriteString("</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")

	if err := os.WriteFile(outputPath, doc.Bytes(), 0o640); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRender, "failed to write artifact").
			WithContext("path", outputPath).
			Build()
	}
	return nil
}
