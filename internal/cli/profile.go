package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Profile holds defaults for ukectl flags.
type Profile struct {
	Host        string `yaml:"host" json:"host"`
	BackendKey  string `yaml:"backend_key" json:"backend_key"`
	FrontendKey string `yaml:"frontend_key" json:"frontend_key"`
	User        string `yaml:"user" json:"user"`
	DB          string `yaml:"db" json:"db"`
}

// DefaultProfilePath is ~/.ukectl.yaml, or empty when there is no home.
func DefaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ukectl.yaml")
}

func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return &p, nil
}

func SaveProfile(p *Profile, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// pick returns the flag value when set, otherwise the profile value,
// otherwise fallback.
func pick(flagSet bool, flagVal, profileVal, fallback string) string {
	if flagSet && flagVal != "" {
		return flagVal
	}
	if profileVal != "" {
		return profileVal
	}
	if flagVal != "" {
		return flagVal
	}
	return fallback
}
