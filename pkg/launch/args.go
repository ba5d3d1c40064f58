package launch

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// ArgData is the template context available to start arguments.
type ArgData struct {
	Engine     string
	EnginePath string
	InstallDir string
}

// RenderArgs expands each start argument as a Go template with sprig
// functions. Arguments without template syntax pass through unchanged.
func RenderArgs(args []string, data ArgData) ([]string, error) {
	rendered := make([]string, 0, len(args))
	for i, arg := range args {
		if !strings.Contains(arg, "{{") {
			rendered = append(rendered, arg)
			continue
		}

		tmpl, err := template.New(fmt.Sprintf("arg%d", i)).Funcs(sprig.FuncMap()).Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("parsing arg %d %q: %w", i, arg, err)
		}

		var out strings.Builder
		if err := tmpl.Execute(&out, data); err != nil {
			return nil, fmt.Errorf("rendering arg %d %q: %w", i, arg, err)
		}
		rendered = append(rendered, out.String())
	}
	return rendered, nil
}
