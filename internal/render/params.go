package render

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/previewd/internal/logfields"
)

// JSONParamsLoader reads variable bindings from a JSON object. Missing or
// malformed files yield an empty mapping; a broken params file degrades the
// preview to unbound variables instead of killing it.
type JSONParamsLoader struct{}

// NewParamsLoader creates the default JSON parameters loader.
func NewParamsLoader() *JSONParamsLoader {
	return &JSONParamsLoader{}
}

func (l *JSONParamsLoader) Load(path string) map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read parameters file", logfields.Path(path), logfields.Error(err))
		}
		return map[string]any{}
	}

	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		slog.Warn("Malformed parameters file, rendering with empty bindings",
			logfields.File(filepath.Base(path)), logfields.Error(err))
		return map[string]any{}
	}
	if params == nil {
		return map[string]any{}
	}
	return params
}
