// Package template renders natural-language label prompts for zero-shot
// classification (e.g. "a photo of a {{.label}}").
package template

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// DefaultLabelTemplate is the standard zero-shot prompt wrapping a class name.
const DefaultLabelTemplate = "a photo of a {{.label}}"

// ErrLabelNotReferenced is returned by Validate when a template never expands
// the label variable, which would make every class prompt identical.
var ErrLabelNotReferenced = errors.New("template does not reference .label")

// Engine renders label prompt templates using Go text/template with custom
// functions.
type Engine struct {
	leftDelim  string
	rightDelim string
	funcMap    template.FuncMap
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithDelims sets custom delimiters (default "{{" and "}}").
func WithDelims(left, right string) EngineOption {
	return func(e *Engine) {
		e.leftDelim = left
		e.rightDelim = right
	}
}

// WithFuncMap adds custom template functions.
func WithFuncMap(fm template.FuncMap) EngineOption {
	return func(e *Engine) {
		for k, v := range fm {
			e.funcMap[k] = v
		}
	}
}

// NewEngine creates a new template engine with default or custom options.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		leftDelim:  "{{",
		rightDelim: "}}",
		funcMap:    defaultFuncMap(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func defaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"join":  strings.Join,
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"trim":  strings.TrimSpace,
	}
}

// RenderLabel renders the prompt template with the given class name bound to
// the "label" variable.
func (e *Engine) RenderLabel(tpl, label string) (string, error) {
	if tpl == "" {
		tpl = DefaultLabelTemplate
	}
	return e.execute(tpl, map[string]interface{}{"label": label})
}

// RenderAll renders the template once per label, preserving order.
func (e *Engine) RenderAll(tpl string, labels []string) ([]string, error) {
	out := make([]string, len(labels))
	for i, l := range labels {
		p, err := e.RenderLabel(tpl, l)
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", l, err)
		}
		out[i] = p
	}
	return out, nil
}

// Validate parses the template and checks that it expands the label variable.
func (e *Engine) Validate(tpl string) error {
	const sentinel = "\x00clipbench-sentinel\x00"
	rendered, err := e.RenderLabel(tpl, sentinel)
	if err != nil {
		return err
	}
	if !strings.Contains(rendered, sentinel) {
		return ErrLabelNotReferenced
	}
	return nil
}

// execute parses and executes a single template string with data.
func (e *Engine) execute(tpl string, data map[string]interface{}) (string, error) {
	t, err := template.New("").Delims(e.leftDelim, e.rightDelim).Funcs(e.funcMap).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
