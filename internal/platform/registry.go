package platform

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

//go:embed profiles.yaml
var defaultProfilesYAML []byte

// Profile describes the output constraints for one target platform.
type Profile struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Aspect      string `yaml:"aspect"`
	MaxDuration int    `yaml:"max_duration"` // seconds
	MaxSizeMB   int    `yaml:"max_size_mb"`
}

// Registry holds the target profiles loaded at startup.
type Registry struct {
	profiles map[string]Profile
	order    []string
}

type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// DefaultRegistry returns the registry built from the embedded profile set.
func DefaultRegistry() *Registry {
	r, err := parseRegistry(defaultProfilesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded profiles.yaml is invalid: %v", err))
	}
	return r
}

// LoadRegistry loads target profiles from a YAML file.
// An empty path returns the embedded defaults.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return parseRegistry(data)
}

func parseRegistry(data []byte) (*Registry, error) {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("no profiles defined")
	}

	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range file.Profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("profile without id")
		}
		if p.Width <= 0 || p.Height <= 0 {
			return nil, fmt.Errorf("profile %s: invalid dimensions %dx%d", p.ID, p.Width, p.Height)
		}
		if _, exists := r.profiles[p.ID]; exists {
			return nil, fmt.Errorf("duplicate profile id: %s", p.ID)
		}
		r.profiles[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r, nil
}

// Lookup returns the profile for a platform id.
func (r *Registry) Lookup(id string) (Profile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// IDs returns all platform ids in file order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Validate checks that every id refers to a known platform.
func (r *Registry) Validate(ids []string) error {
	for _, id := range ids {
		if _, ok := r.profiles[id]; !ok {
			return fmt.Errorf("unknown platform: %s", id)
		}
	}
	return nil
}
