package render

// TemplateEngine evaluates the workspace's main markup file against variable
// bindings, resolving referenced sub-templates relative to the workspace
// root. Implementations must fall back to string-only rendering (no
// cross-file references) when file-based resolution fails for a reason
// unrelated to template syntax.
type TemplateEngine interface {
	Render(mainFilePath string, bindings map[string]any, workspaceRoot string) (string, error)
}

// DocumentRenderer converts resolved markup into the final artifact written
// at outputPath. Relative resource references in the markup are resolved
// against baseDir.
type DocumentRenderer interface {
	Render(markup string, outputPath string, baseDir string) error
}

// ParamsLoader reads the workspace's variable bindings. A missing or
// malformed parameters file yields an empty mapping, never an error:
// malformed parameters must not abort rendering.
type ParamsLoader interface {
	Load(path string) map[string]any
}
