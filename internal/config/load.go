package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadWarning reports a config file that could not be used. Load still
// returns usable defaults alongside it, so callers typically log it and
// continue.
type LoadWarning struct {
	Path string
	Err  error
}

func (w *LoadWarning) Error() string {
	return fmt.Sprintf("config: %s: %v; using defaults", w.Path, w.Err)
}

func (w *LoadWarning) Unwrap() error { return w.Err }

// Load reads path and merges it onto Default(). An empty path yields the
// defaults with no warning. A missing, unreadable or malformed file yields the
// defaults and a *LoadWarning.
func Load(path string) (Pipeline, error) {
	def := Default()
	if strings.TrimSpace(path) == "" {
		return def, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return def, &LoadWarning{Path: path, Err: err}
	}
	override, err := decodeOverride(path, b)
	if err != nil {
		return def, &LoadWarning{Path: path, Err: err}
	}
	p, err := Merge(def, override)
	if err != nil {
		return def, &LoadWarning{Path: path, Err: err}
	}
	return p, nil
}

// decodeOverride picks the decoder by extension: .yaml/.yml use YAML,
// everything else JSON.
func decodeOverride(path string, b []byte) (Options, error) {
	var m map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}
	if m == nil {
		m = map[string]any{}
	}
	return Options(m), nil
}

// Merge applies override onto base using the top-level merge rule: when both
// sides hold an object for a key the fields are merged with override winning,
// otherwise the override value replaces the base value.
func Merge(base Pipeline, override Options) (Pipeline, error) {
	merged, err := toOptions(base)
	if err != nil {
		return base, err
	}
	for k, v := range override {
		over, overIsMap := v.(map[string]any)
		cur := merged.Map(k)
		if overIsMap && cur != nil {
			for fk, fv := range over {
				cur[fk] = fv
			}
			continue
		}
		merged[k] = v
	}

	b, err := json.Marshal(map[string]any(merged))
	if err != nil {
		return base, fmt.Errorf("encode merged config: %w", err)
	}
	var out Pipeline
	if err := json.Unmarshal(b, &out); err != nil {
		return base, fmt.Errorf("decode merged config: %w", err)
	}
	if out.Schema.ColumnTypes == nil {
		out.Schema.ColumnTypes = map[string]string{}
	}
	if out.Schema.RequiredColumns == nil {
		out.Schema.RequiredColumns = []string{}
	}
	return out, nil
}

func toOptions(p Pipeline) (Options, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	var o Options
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return o, nil
}
