// Package params is a flat, dotted-name parameter store with registered
// defaults, loadable from YAML or TOML files.
package params

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownParameter is returned by Lookup for names that were never
// registered or set.
var ErrUnknownParameter = errors.New("unknown parameter")

// Param is a single parameter.
type Param struct {
	Name    string
	Value   string
	Default string
	Desc    string
}

// Set holds parameters. It is safe for concurrent use.
type Set struct {
	mu     sync.RWMutex
	params map[string]*Param
	warned map[string]bool
	log    *slog.Logger
}

// New returns an empty set. A nil logger discards diagnostics.
func New(log *slog.Logger) *Set {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Set{
		params: make(map[string]*Param),
		warned: make(map[string]bool),
		log:    log,
	}
}

// AddDefault registers name with a default value and a description. A value
// already set (for example by an earlier LoadFile) is kept.
func (s *Set) AddDefault(name, value, desc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.params[name]; ok {
		p.Default = value
		p.Desc = desc
		return
	}
	s.params[name] = &Param{Name: name, Value: value, Default: value, Desc: desc}
}

// Set assigns a value, registering the name if needed.
func (s *Set) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.params[name]; ok {
		p.Value = value
		return
	}
	s.params[name] = &Param{Name: name, Value: value}
}

// Lookup returns the value of name.
func (s *Set) Lookup(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.params[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	return p.Value, nil
}

// String returns the value of name, or "" after logging when it is unknown.
func (s *Set) String(name string) string {
	v, err := s.Lookup(name)
	if err != nil {
		s.warnOnce(name, "params: failed to get parameter", "error", err)
		return ""
	}
	return v
}

// Int parses name as an integer. Unparsable values fall back to the default.
func (s *Set) Int(name string) int {
	v, def := s.valueAndDefault(name)
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err == nil {
		return n
	}
	s.warnOnce(name, "params: not an integer", "value", v)
	n, _ = strconv.Atoi(strings.TrimSpace(def))
	return n
}

// Float parses name as a float64. Unparsable values fall back to the default.
func (s *Set) Float(name string) float64 {
	v, def := s.valueAndDefault(name)
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err == nil {
		return f
	}
	s.warnOnce(name, "params: not a number", "value", v)
	f, _ = strconv.ParseFloat(strings.TrimSpace(def), 64)
	return f
}

// Bool parses name as a boolean. Unparsable values fall back to the default.
func (s *Set) Bool(name string) bool {
	v, def := s.valueAndDefault(name)
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err == nil {
		return b
	}
	s.warnOnce(name, "params: not a boolean", "value", v)
	b, _ = strconv.ParseBool(strings.TrimSpace(def))
	return b
}

// Color parses name as "<r,g,b>" with components in 0..1.
func (s *Set) Color(name string) mgl32.Vec3 {
	v, def := s.valueAndDefault(name)
	c, err := ParseColor(v)
	if err == nil {
		return c
	}
	s.warnOnce(name, "params: not a color", "value", v, "error", err)
	c, _ = ParseColor(def)
	return c
}

// ParseColor parses "<r,g,b>" (angle brackets optional). Components are
// clamped to 0..1.
func ParseColor(v string) (mgl32.Vec3, error) {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "<")
	v = strings.TrimSuffix(v, ">")
	parts := strings.Split(v, ",")
	if len(parts) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("color %q: want 3 components, got %d", v, len(parts))
	}
	var c mgl32.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return mgl32.Vec3{}, fmt.Errorf("color %q: %w", v, err)
		}
		c[i] = mgl32.Clamp(float32(f), 0, 1)
	}
	return c, nil
}

// All returns every parameter sorted by name.
func (s *Set) All() []Param {
	s.mu.RLock()
	out := make([]Param, 0, len(s.params))
	for _, p := range s.params {
		out = append(out, *p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadFile reads a .yaml/.yml or .toml file and sets every leaf it contains.
func (s *Set) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open params: %w", err)
	}
	defer f.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if err := s.Load(f, format); err != nil {
		return fmt.Errorf("load params %s: %w", path, err)
	}
	s.log.Info("params: loaded", "path", path)
	return nil
}

// Load reads parameters in the given format ("yaml", "yml" or "toml").
// Nested tables flatten to dotted names.
func (s *Set) Load(r io.Reader, format string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	tree := map[string]any{}
	switch format {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &tree)
	case "toml":
		err = toml.Unmarshal(data, &tree)
	default:
		return fmt.Errorf("unsupported params format %q", format)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", format, err)
	}

	flat := map[string]string{}
	flatten("", tree, flat)
	for k, v := range flat {
		s.Set(k, v)
	}
	return nil
}

func flatten(prefix string, v any, out map[string]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flatten(join(prefix, k), child, out)
		}
	case map[any]any:
		for k, child := range t {
			flatten(join(prefix, fmt.Sprint(k)), child, out)
		}
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = fmt.Sprint(e)
		}
		out[prefix] = "<" + strings.Join(parts, ",") + ">"
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(t)
	}
}

func join(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + "." + k
}

func (s *Set) valueAndDefault(name string) (string, string) {
	s.mu.RLock()
	p, ok := s.params[name]
	var v, def string
	if ok {
		v, def = p.Value, p.Default
	}
	s.mu.RUnlock()
	if !ok {
		s.warnOnce(name, "params: failed to get parameter", "error", fmt.Errorf("%w: %s", ErrUnknownParameter, name))
	}
	return v, def
}

func (s *Set) warnOnce(name, msg string, args ...any) {
	s.mu.Lock()
	seen := s.warned[name]
	s.warned[name] = true
	s.mu.Unlock()
	if !seen {
		s.log.Warn(msg, append([]any{"name", name}, args...)...)
	}
}
