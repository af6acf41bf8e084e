package render

import (
	"bytes"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
	"git.home.luguber.info/inful/previewd/internal/logfields"
)

// GoTemplateEngine is the built-in TemplateEngine based on text/template.
//
// File-based rendering parses every file in the workspace that shares the
// main file's extension into one template set, so {{template "partial.md" .}}
// resolves against sibling files. When that fails for a reason unrelated to
// the main file's syntax (an unreadable or broken sibling), it falls back to
// rendering the main file's content alone.
type GoTemplateEngine struct{}

// NewTemplateEngine creates the default template engine.
func NewTemplateEngine() *GoTemplateEngine {
	return &GoTemplateEngine{}
}

// prepareBindings copies the user bindings and injects the always-available
// "now" value when absent.
func prepareBindings(bindings map[string]any) map[string]any {
	data := make(map[string]any, len(bindings)+1)
	for k, v := range bindings {
		data[k] = v
	}
	if _, ok := data["now"]; !ok {
		data["now"] = time.Now()
	}
	return data
}

func (e *GoTemplateEngine) Render(mainFilePath string, bindings map[string]any, workspaceRoot string) (string, error) {
	data := prepareBindings(bindings)

	out, fileErr := e.renderFileSet(mainFilePath, data, workspaceRoot)
	if fileErr == nil {
		return out, nil
	}

	slog.Warn("File-based template rendering failed, trying string fallback",
		logfields.File(filepath.Base(mainFilePath)), logfields.Error(fileErr))

	out, strErr := e.renderString(mainFilePath, data)
	if strErr == nil {
		return out, nil
	}

	return "", ferrors.WrapError(strErr, ferrors.CategoryTemplate, "template rendering failed with both methods").
		WithContext("file", filepath.Base(mainFilePath)).
		WithContext("file_based_error", fileErr.Error()).
		Build()
}

// renderFileSet parses the main file plus all same-extension siblings into
// one template set and executes the main template.
func (e *GoTemplateEngine) renderFileSet(mainFilePath string, data map[string]any, workspaceRoot string) (string, error) {
	mainName := filepath.Base(mainFilePath)
	ext := filepath.Ext(mainFilePath)

	var files []string
	walkErr := filepath.WalkDir(workspaceRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") && path != workspaceRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ext {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return "", ferrors.WrapError(walkErr, ferrors.CategoryFileSystem, "failed to enumerate template files").Build()
	}
	if len(files) == 0 {
		return "", ferrors.NotFoundError("main template file not found").
			WithContext("file", mainName).
			Build()
	}

	tpl, err := template.New(mainName).Option("missingkey=zero").ParseFiles(files...)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryTemplate, "failed to parse template set").Build()
	}

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, mainName, data); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryTemplate, "failed to execute template").Build()
	}
	return buf.String(), nil
}

// renderString renders the main file's content alone, with no cross-file
// template references available.
func (e *GoTemplateEngine) renderString(mainFilePath string, data map[string]any) (string, error) {
	content, err := os.ReadFile(mainFilePath)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read main template").Build()
	}

	tpl, err := template.New(filepath.Base(mainFilePath)).Option("missingkey=zero").Parse(string(content))
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryTemplate, "failed to parse template").Build()
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryTemplate, "failed to execute template").Build()
	}
	return buf.String(), nil
}
