package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hostsolo/hostsolo/pkg/errdefs"
)

// Save writes cfg to path. Map keys keep their insertion order and
// multi-line strings are written as literal blocks.
func Save(cfg *Config, path string) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal encodes cfg the way Save writes it.
func Marshal(cfg *Config) ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return encodeNode(&node)
}

// Document is the raw node tree of a config file. Edits made through it
// keep comments and keys the typed model does not know about.
type Document struct {
	path string
	root yaml.Node
}

// LoadDocument reads the config file at path without decoding it into Config.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errdefs.NotFound("config file", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	doc := &Document{path: path}
	if err := yaml.Unmarshal(data, &doc.root); err != nil {
		return nil, &errdefs.ValidationError{Message: "failed to parse config", Err: err}
	}
	return doc, nil
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string {
	return d.path
}

// AddEnvironment appends an environment entry. When the file declares no
// environments the defaults are written out first so they are not lost.
func (d *Document) AddEnvironment(name, subdomain string) error {
	top, err := d.topMapping()
	if err != nil {
		return err
	}

	envs := mappingValue(top, "environments")
	if envs == nil || envs.Kind != yaml.MappingNode || len(envs.Content) == 0 {
		defaults := DefaultEnvironments()
		var seeded yaml.Node
		if err := seeded.Encode(defaults); err != nil {
			return fmt.Errorf("failed to encode default environments: %w", err)
		}
		setMappingValue(top, "environments", &seeded)
		envs = &seeded
	}

	if mappingValue(envs, name) != nil {
		return errdefs.Invalid("environments", fmt.Sprintf("environment '%s' already exists", name))
	}

	var entry yaml.Node
	if err := entry.Encode(EnvironmentSpec{Subdomain: subdomain}); err != nil {
		return fmt.Errorf("failed to encode environment: %w", err)
	}
	envs.Content = append(envs.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
		&entry,
	)
	return nil
}

// Save writes the document back to the file it was loaded from.
func (d *Document) Save() error {
	data, err := encodeNode(&d.root)
	if err != nil {
		return err
	}
	if err := os.WriteFile(d.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (d *Document) topMapping() (*yaml.Node, error) {
	if d.root.Kind == 0 {
		d.root = yaml.Node{Kind: yaml.DocumentNode}
	}
	if d.root.Kind != yaml.DocumentNode {
		return nil, errdefs.Invalid("", "config document has unexpected structure")
	}
	if len(d.root.Content) == 0 {
		d.root.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	}
	top := d.root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, errdefs.Invalid("", "config document must be a mapping")
	}
	return top, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setMappingValue(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

func encodeNode(node *yaml.Node) ([]byte, error) {
	useLiteralBlocks(node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// useLiteralBlocks switches every multi-line string scalar to literal style.
func useLiteralBlocks(node *yaml.Node) {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!str" && strings.Contains(node.Value, "\n") {
		node.Style = yaml.LiteralStyle
	}
	for _, child := range node.Content {
		useLiteralBlocks(child)
	}
}
