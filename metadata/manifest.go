package metadata

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultDescription = "An adorable {name} puppy!"

// Manifest describes how images of a collection are turned into token
// documents. Every field is optional.
type Manifest struct {
	// Description is a template; "{name}" is replaced by the image name.
	Description string `yaml:"description"`
	// Order lists image names in category order. Images not listed follow
	// in directory order.
	Order []string                `yaml:"order"`
	Items map[string]ManifestItem `yaml:"items"`
}

// ManifestItem overrides the document of a single image.
type ManifestItem struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Attributes  []Attribute `yaml:"attributes"`
}

// LoadManifest reads a YAML manifest. An empty path returns the defaults.
func LoadManifest(path string) (*Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return &Manifest{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("metadata: parse manifest: %w", err)
	}
	seen := make(map[string]struct{}, len(m.Order))
	for _, name := range m.Order {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("metadata: manifest lists %q twice", name)
		}
		seen[name] = struct{}{}
	}
	return &m, nil
}

// Document renders the token document for image name pinned at imageURI.
func (m *Manifest) Document(name, imageURI string) Token {
	tmpl := defaultDescription
	item := ManifestItem{}
	if m != nil {
		if m.Description != "" {
			tmpl = m.Description
		}
		item = m.Items[name]
	}
	doc := Token{
		Name:        name,
		Description: strings.ReplaceAll(tmpl, "{name}", name),
		Image:       imageURI,
		Attributes:  []Attribute{},
	}
	if item.Name != "" {
		doc.Name = item.Name
	}
	if item.Description != "" {
		doc.Description = item.Description
	}
	if len(item.Attributes) > 0 {
		doc.Attributes = append(doc.Attributes, item.Attributes...)
	}
	return doc
}

func (m *Manifest) order(names []string) []string {
	if m == nil || len(m.Order) == 0 {
		return names
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	out := make([]string, 0, len(names))
	placed := make(map[string]bool, len(names))
	for _, n := range m.Order {
		if present[n] {
			out = append(out, n)
			placed[n] = true
		}
	}
	for _, n := range names {
		if !placed[n] {
			out = append(out, n)
		}
	}
	return out
}
