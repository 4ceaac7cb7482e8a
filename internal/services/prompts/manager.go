package prompts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"google.golang.org/genai"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultCatalogue []byte

// Prompt is a rendered prompt ready for a generator
type Prompt struct {
	Name       string
	Intent     string
	ResultKind string
	Text       string
	Schema     *genai.Schema
}

type entry struct {
	Intent     string         `yaml:"intent"`
	ResultKind string         `yaml:"result_kind"`
	Schema     map[string]any `yaml:"schema"`
	Template   string         `yaml:"template"`
}

type catalogue struct {
	Prompts map[string]entry `yaml:"prompts"`
}

type compiled struct {
	intent     string
	resultKind string
	schema     *genai.Schema
	tmpl       *template.Template
}

// Manager renders named prompt templates
type Manager struct {
	prompts map[string]*compiled
}

// NewManager loads the built-in catalogue
func NewManager() (*Manager, error) {
	return Load(defaultCatalogue)
}

// LoadFile loads a catalogue from disk, replacing the built-in one
func LoadFile(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt catalogue: %w", err)
	}
	return Load(data)
}

// Load parses a YAML prompt catalogue
func Load(data []byte) (*Manager, error) {
	var cat catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing prompt catalogue: %w", err)
	}
	if len(cat.Prompts) == 0 {
		return nil, fmt.Errorf("prompt catalogue defines no prompts")
	}

	m := &Manager{prompts: make(map[string]*compiled, len(cat.Prompts))}
	for name, e := range cat.Prompts {
		if e.ResultKind == "" {
			return nil, fmt.Errorf("prompt %s: result_kind is required", name)
		}

		tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(e.Template)
		if err != nil {
			return nil, fmt.Errorf("parsing prompt %s: %w", name, err)
		}

		schema, err := toSchema(e.Schema)
		if err != nil {
			return nil, fmt.Errorf("prompt %s schema: %w", name, err)
		}

		intent := e.Intent
		if intent == "" {
			intent = name
		}
		m.prompts[name] = &compiled{
			intent:     intent,
			resultKind: e.ResultKind,
			schema:     schema,
			tmpl:       tmpl,
		}
	}
	return m, nil
}

// toSchema converts the YAML schema tree through JSON so genai's own field
// names and enum values apply
func toSchema(raw map[string]any) (*genai.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var schema genai.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// Render executes the named prompt with data
func (m *Manager) Render(name string, data any) (*Prompt, error) {
	c, ok := m.prompts[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt %q", name)
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering prompt %s: %w", name, err)
	}

	return &Prompt{
		Name:       name,
		Intent:     c.intent,
		ResultKind: c.resultKind,
		Text:       strings.TrimSpace(buf.String()),
		Schema:     c.schema,
	}, nil
}

// Names lists the loaded prompts in sorted order
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.prompts))
	for name := range m.prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
