package benchmark

import (
	"bytes"
	"fmt"
	"regexp"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"
)

const DefaultNameTemplate = "{{ .BaseName }}-{{ .Memory }}-{{ .Index }}"

var functionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var ErrInvalidFunctionName = errors.New("invalid function name")

// NameData is what a name template sees.
type NameData struct {
	BaseName string
	Memory   int64
	Index    int
}

// Namer renders function names from a template.
type Namer struct {
	tmpl *template.Template
}

// NewNamer parses text as a text/template with the sprig function set.
func NewNamer(text string) (*Namer, error) {
	tmpl, err := template.New("function-name").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse name template")
	}
	return &Namer{tmpl: tmpl}, nil
}

// MustNewNamer is NewNamer that panics on a bad template.
func MustNewNamer(text string) *Namer {
	n, err := NewNamer(text)
	if err != nil {
		panic(err)
	}
	return n
}

// Name renders the name of spec and checks it against the Lambda naming rules.
func (n *Namer) Name(spec FunctionSpec) (string, error) {
	var buf bytes.Buffer
	err := n.tmpl.Execute(&buf, NameData{
		BaseName: spec.BaseName,
		Memory:   spec.MemorySize,
		Index:    spec.Index,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to render function name")
	}

	name := buf.String()
	if !functionNamePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFunctionName, name)
	}
	return name, nil
}

var defaultNamer = MustNewNamer(DefaultNameTemplate)
