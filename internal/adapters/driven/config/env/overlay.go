// Package env overlays environment variables on a ConfigStore.
//
// A key such as "graph.neo4j_uri" is read from FUSIONQA_GRAPH_NEO4J_URI
// before falling back to the wrapped store. Variables may come from the
// process environment or a .env file loaded with LoadDotEnv.
package env

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
)

// Ensure Overlay implements the interface.
var _ driven.ConfigStore = (*Overlay)(nil)

// Prefix is prepended to every environment variable name.
const Prefix = "FUSIONQA_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Overlay reads environment variables first and the wrapped store second.
// Writes go to the wrapped store only.
type Overlay struct {
	base   driven.ConfigStore
	lookup LookupFunc
}

// NewOverlay wraps base. A nil lookup uses os.LookupEnv.
func NewOverlay(base driven.ConfigStore, lookup LookupFunc) *Overlay {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Overlay{base: base, lookup: lookup}
}

// LoadDotEnv loads variables from the given files, or ./.env when none are
// given. Missing files are ignored; existing variables are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// VarName returns the environment variable that overrides key.
func VarName(key string) string {
	return Prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (o *Overlay) env(key string) (string, bool) {
	v, ok := o.lookup(VarName(key))
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Get returns the raw environment string or the stored value.
func (o *Overlay) Get(key string) (any, bool) {
	if v, ok := o.env(key); ok {
		return v, true
	}
	return o.base.Get(key)
}

// GetString retrieves a string configuration value.
func (o *Overlay) GetString(key string) string {
	if v, ok := o.env(key); ok {
		return v
	}
	return o.base.GetString(key)
}

// GetInt retrieves an integer configuration value.
func (o *Overlay) GetInt(key string) int {
	if v, ok := o.env(key); ok {
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return o.base.GetInt(key)
}

// GetFloat retrieves a float configuration value.
func (o *Overlay) GetFloat(key string) float64 {
	if v, ok := o.env(key); ok {
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	}
	return o.base.GetFloat(key)
}

// GetBool retrieves a boolean configuration value.
func (o *Overlay) GetBool(key string) bool {
	if v, ok := o.env(key); ok {
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return o.base.GetBool(key)
}

// GetDuration retrieves a duration; bare numbers are seconds.
func (o *Overlay) GetDuration(key string) time.Duration {
	v, ok := o.env(key)
	if !ok {
		return o.base.GetDuration(key)
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return 0
}

// GetStringSlice reads a comma-separated variable.
func (o *Overlay) GetStringSlice(key string) []string {
	v, ok := o.env(key)
	if !ok {
		return o.base.GetStringSlice(key)
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Keys returns the stored keys. Keys set only in the environment are not listed.
func (o *Overlay) Keys() []string {
	keys := o.base.Keys()
	sort.Strings(keys)
	return keys
}

// Set writes to the wrapped store.
func (o *Overlay) Set(key string, value any) error {
	return o.base.Set(key, value)
}

// Save persists the wrapped store.
func (o *Overlay) Save() error {
	return o.base.Save()
}

// Load reloads the wrapped store.
func (o *Overlay) Load() error {
	return o.base.Load()
}

// Path returns the wrapped store's file path.
func (o *Overlay) Path() string {
	return o.base.Path()
}

// Overridden reports whether key is currently set in the environment.
func (o *Overlay) Overridden(key string) bool {
	_, ok := o.env(key)
	return ok
}
