// Package config loads SkyShift's control-plane configuration file
// (spec.md §6: `~/.skym/config.yaml` or equivalent) into an explicit,
// immutable Config value threaded through component constructors — no
// package-level singleton, matching the teacher's convention of passing
// configuration structs (e.g. manager.Config, worker.Config) into
// constructors rather than reading globals.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the config file lives absent an override.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".skym/config.yaml"
	}
	return filepath.Join(home, ".skym", "config.yaml")
}

// APIServer is the control plane's own listen address plus its configured
// secret. The secret is loaded from the file; no code in this module reads it.
type APIServer struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"`
}

// User binds a bearer access token to a principal name (spec.md §6
// `users[]`); loaded directly into a security.TokenStore at startup.
type User struct {
	Name        string `yaml:"name"`
	AccessToken string `yaml:"access_token"`
}

// Context names one (namespace, user, cluster) triple a client operates
// under (spec.md §6 `contexts[]`).
type Context struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace"`
	User      string `yaml:"user"`
	Cluster   string `yaml:"cluster"`
}

// Config is the fully-parsed contents of the control-plane config file.
// It is immutable once loaded; callers thread it into constructors rather
// than reading it back out of a global.
type Config struct {
	APIServer      APIServer `yaml:"api_server"`
	Users          []User    `yaml:"users"`
	Contexts       []Context `yaml:"contexts"`
	CurrentContext string    `yaml:"current_context"`
}

// Addr returns the "host:port" the API server listens on / clients dial.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIServer.Host, c.APIServer.Port)
}

// Context returns the named context, or the current one if name is "".
func (c *Config) Context(name string) (Context, bool) {
	if name == "" {
		name = c.CurrentContext
	}
	for _, ctx := range c.Contexts {
		if ctx.Name == name {
			return ctx, true
		}
	}
	return Context{}, false
}

// User returns the named user's config.
func (c *Config) User(name string) (User, bool) {
	for _, u := range c.Users {
		if u.Name == name {
			return u, true
		}
	}
	return User{}, false
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the declarative constraints spec.md §6 implies: every
// context must reference a known user, and current_context (if set) must
// name a known context.
func (c *Config) Validate() error {
	if c.APIServer.Host == "" {
		return fmt.Errorf("api_server.host is required")
	}
	if c.APIServer.Port == 0 {
		return fmt.Errorf("api_server.port is required")
	}
	for _, ctx := range c.Contexts {
		if _, ok := c.User(ctx.User); !ok {
			return fmt.Errorf("context %q references unknown user %q", ctx.Name, ctx.User)
		}
	}
	if c.CurrentContext != "" {
		if _, ok := c.Context(c.CurrentContext); !ok {
			return fmt.Errorf("current_context %q is not a defined context", c.CurrentContext)
		}
	}
	return nil
}
