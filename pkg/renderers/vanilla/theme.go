package vanilla

import (
	"fmt"
	"os"
	"strings"

	theme "github.com/goliatone/go-theme"
	"gopkg.in/yaml.v3"
)

// LoadManifest reads a go-theme manifest from a YAML (or JSON) file.
func LoadManifest(path string) (*theme.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: read theme manifest: %w", err)
	}
	var manifest theme.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("vanilla renderer: parse theme manifest %s: %w", path, err)
	}
	if manifest.Name == "" {
		return nil, fmt.Errorf("vanilla renderer: theme manifest %s has no name", path)
	}
	return &manifest, nil
}

// ManifestSelector selects among a fixed set of manifests. An empty theme
// name selects the first manifest given.
type ManifestSelector struct {
	manifests map[string]*theme.Manifest
	fallback  string
}

var _ theme.ThemeSelector = (*ManifestSelector)(nil)

// NewManifestSelector indexes manifests by name.
func NewManifestSelector(manifests ...*theme.Manifest) *ManifestSelector {
	s := &ManifestSelector{manifests: map[string]*theme.Manifest{}}
	for _, m := range manifests {
		if m == nil {
			continue
		}
		if s.fallback == "" {
			s.fallback = m.Name
		}
		s.manifests[m.Name] = m
	}
	return s
}

// Select implements theme.ThemeSelector.
func (s *ManifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name == "" {
		name = s.fallback
	}
	manifest, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("theme %q not registered", name)
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: manifest.Name, Variant: variant, Manifest: manifest}, nil
}

// ThemeConfig resolves a theme through selector and flattens the selection
// into a renderer configuration. Manifest tokens become "--formflow-<token>"
// CSS variables; variant tokens and asset files override the base manifest.
func ThemeConfig(selector theme.ThemeSelector, name, variant string) (*theme.RendererConfig, error) {
	if selector == nil {
		return nil, nil
	}
	selection, err := selector.Select(name, variant)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: select theme %q: %w", name, err)
	}
	return configFromSelection(selection), nil
}

func configFromSelection(selection *theme.Selection) *theme.RendererConfig {
	if selection == nil {
		return nil
	}
	cfg := &theme.RendererConfig{
		Theme:   selection.Theme,
		Variant: selection.Variant,
		Tokens:  map[string]string{},
		CSSVars: map[string]string{},
	}

	prefix := ""
	assets := map[string]string{}
	if manifest := selection.Manifest; manifest != nil {
		for key, value := range manifest.Tokens {
			cfg.Tokens[key] = value
		}
		prefix = manifest.Assets.Prefix
		for key, value := range manifest.Assets.Files {
			assets[key] = value
		}
		if v, ok := manifest.Variants[selection.Variant]; ok {
			for key, value := range v.Tokens {
				cfg.Tokens[key] = value
			}
			if v.Assets.Prefix != "" {
				prefix = v.Assets.Prefix
			}
			for key, value := range v.Assets.Files {
				assets[key] = value
			}
		}
	}
	for key, value := range cfg.Tokens {
		cfg.CSSVars["--formflow-"+strings.ReplaceAll(key, ".", "-")] = value
	}

	cfg.AssetURL = func(key string) string {
		file := assets[key]
		if file == "" {
			return ""
		}
		if strings.HasPrefix(file, "/") || strings.Contains(file, "://") || prefix == "" {
			return file
		}
		return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(file, "/")
	}
	return cfg
}
