// Package config provides the flat configuration store for the voice
// assistant: a JSON (or YAML) file merged over built-in defaults, addressed
// with dot-path keys ("stt.provider", "llm.model"), persisted on every Set.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// sensitiveMarkers are substrings that flag a key as secret-bearing for
// [Store.Sanitized].
var sensitiveMarkers = []string{"api_key", "password", "secret", "token", "key"}

// Defaults returns the built-in configuration tree. A freshly created
// config file starts from exactly this shape.
func Defaults() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"host":      "0.0.0.0",
			"port":      8000,
			"log_level": "info",
		},
		"backend_url": "http://localhost:8000",
		"stt": map[string]any{
			"provider":       "openai",
			"openai_api_key": "",
			"model":          "whisper-1",
			"language":       "en-US",
		},
		"tts": map[string]any{
			"provider":       "openai",
			"openai_api_key": "",
			"voice":          "alloy",
			"model":          "tts-1",
		},
		"llm": map[string]any{
			"provider":       "openai",
			"openai_api_key": "",
			"model":          "gpt-4o-mini",
			"max_tokens":     150,
			"temperature":    0.7,
			"system_prompt":  "You are a helpful personal assistant robot. Keep responses concise and friendly.",
		},
		"wake_word_enabled": true,
		"wake_word":         "hey robot",
		"voice": map[string]any{
			"energy_threshold":  1000000.0,
			"zcr_threshold":     0.05,
			"silence_frames":    20,
			"timeout_frames":    120,
			"min_speech_frames": 5,
		},
	}
}

// Store is the configuration store. It is safe for concurrent use; Set
// persists the whole tree back to the file it was loaded from.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]any
}

// Load reads the config file at path, merging its contents over
// [Defaults]. A missing file is created with the defaults so a first run
// leaves an editable config behind. JSON is assumed unless the extension
// is .yaml/.yml.
func Load(path string) (*Store, error) {
	s := &Store{path: path, values: Defaults()}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.Save(); err != nil {
			return nil, fmt.Errorf("config: create %q: %w", path, err)
		}
		slog.Info("created default configuration file", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	fileValues := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &fileValues); err != nil {
			return nil, fmt.Errorf("config: parse yaml %q: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, &fileValues); err != nil {
			return nil, fmt.Errorf("config: parse json %q: %w", path, err)
		}
	}

	s.values = merge(s.values, fileValues)
	return s, nil
}

// Reload re-reads the backing file and replaces the in-memory tree,
// merging over [Defaults] just like the initial Load. Used by the file
// watcher to pick up out-of-band edits.
func (s *Store) Reload() error {
	fresh, err := Load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values = fresh.values
	s.mu.Unlock()
	return nil
}

// merge recursively overlays override onto base, returning a new tree.
func merge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if bv, ok := out[k].(map[string]any); ok {
			if ov, ok := v.(map[string]any); ok {
				out[k] = merge(bv, ov)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Get returns the value at the dot-separated key, or false when any path
// segment is missing.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.values, key)
}

func lookup(tree map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	var cur any = tree
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetString returns the string at key, or def when absent or not a string.
func (s *Store) GetString(key, def string) string {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	str, ok := v.(string)
	if !ok {
		return def
	}
	return str
}

// GetInt returns the integer at key. JSON numbers decode as float64, so
// both representations are accepted.
func (s *Store) GetInt(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

// GetFloat returns the float at key, or def.
func (s *Store) GetFloat(key string, def float64) float64 {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// GetBool returns the boolean at key, or def.
func (s *Store) GetBool(key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// Set writes value at the dot-separated key, creating intermediate maps as
// needed, and persists the store.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	parts := strings.Split(key, ".")
	m := s.values
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
	s.mu.Unlock()
	return s.Save()
}

// Save writes the current tree to the backing file as indented JSON (or
// YAML when the path says so).
func (s *Store) Save() error {
	s.mu.RLock()
	var (
		raw []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		raw, err = yaml.Marshal(s.values)
	default:
		raw, err = json.MarshalIndent(s.values, "", "  ")
	}
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("config: write %q: %w", s.path, err)
	}
	return nil
}

// Sanitized returns a deep copy of the tree with secret-bearing values
// masked, suitable for the config API and logs.
func (s *Store) Sanitized() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sanitize(s.values)
}

func sanitize(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		if m, ok := v.(map[string]any); ok {
			out[k] = sanitize(m)
			continue
		}
		if isSensitive(k) {
			if str, ok := v.(string); ok && str == "" {
				out[k] = ""
			} else {
				out[k] = "***"
			}
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Section returns a prefixed view of the store, used to hand each provider
// registry exactly its capability's keys and nothing else.
func (s *Store) Section(prefix string) Section {
	return Section{store: s, prefix: prefix}
}

// Section is a read-only, prefix-scoped view of a [Store].
type Section struct {
	store  *Store
	prefix string
}

// GetString returns the string at prefix.key.
func (c Section) GetString(key, def string) string {
	return c.store.GetString(c.prefix+"."+key, def)
}

// GetInt returns the integer at prefix.key.
func (c Section) GetInt(key string, def int) int {
	return c.store.GetInt(c.prefix+"."+key, def)
}

// GetFloat returns the float at prefix.key.
func (c Section) GetFloat(key string, def float64) float64 {
	return c.store.GetFloat(c.prefix+"."+key, def)
}

// Provider returns the configured provider name for this capability.
func (c Section) Provider() string {
	return c.GetString("provider", "")
}
