// Package tools exposes ledger, rate and budget operations as a fixed
// function table a natural-language dispatcher can bind against. Each tool
// carries a JSON-schema description of its arguments.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fxledger/internal/core"
	"fxledger/internal/log"
)

var ErrUnknownTool = errors.New("unknown tool")

// Property is one argument in a tool schema.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

// Schema is the JSON-schema object describing a tool's arguments.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

func object(required []string, props map[string]Property) Schema {
	return Schema{Type: "object", Properties: props, Required: required}
}

type handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is a named, described operation.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
	call        handler
}

type Registry struct {
	order  []string
	byName map[string]Tool
	now    func() time.Time
}

func newRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool), now: time.Now}
}

func (r *Registry) add(t Tool) {
	if _, dup := r.byName[t.Name]; dup {
		panic(fmt.Sprintf("tools: duplicate tool %q", t.Name))
	}
	r.order = append(r.order, t.Name)
	r.byName[t.Name] = t
}

// register binds a typed handler; arguments are decoded into A.
func register[A any](r *Registry, name, description string, params Schema, fn func(ctx context.Context, args A) (any, error)) {
	r.add(Tool{
		Name:        name,
		Description: description,
		Parameters:  params,
		call: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args A
			if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
				if err := json.Unmarshal(trimmed, &args); err != nil {
					return nil, core.NewValidationError("arguments", err.Error())
				}
			}
			return fn(ctx, args)
		},
	})
}

// Tools lists every tool in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Invoke decodes args and runs the named tool.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	start := time.Now()
	out, err := t.call(ctx, args)
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "Tool invoked",
		log.FieldComponent, log.ComponentTools,
		log.FieldTool, name,
		log.FieldSuccess, err == nil,
		log.FieldDuration, time.Since(start).Milliseconds(),
		log.FieldError, errString(err))
	return out, err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
