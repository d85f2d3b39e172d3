// Package file loads authored flow documents from disk. Each tenant
// owns a subdirectory; each template is one JSON or YAML file:
//
//	<root>/<tenantID>/<templateID>.yaml
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/avelardos/convoflow/pkg/domain"
)

var extensions = []string{".yaml", ".yml", ".json"}

// Source implements ports.FlowSource over a directory tree.
type Source struct {
	root string
}

// NewSource creates a file-backed flow source rooted at dir.
func NewSource(dir string) *Source {
	return &Source{root: dir}
}

// Load finds and decodes the template document for a tenant.
func (s *Source) Load(ctx context.Context, tenantID, templateID string) (map[string]any, error) {
	for _, ext := range extensions {
		path := filepath.Join(s.root, tenantID, templateID+ext)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read flow %s: %w", path, err)
		}
		return decode(path, data)
	}
	return nil, domain.ErrFlowNotFound
}

// List returns the template ids available for a tenant.
func (s *Source) List(tenantID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, tenantID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		for _, known := range extensions {
			if ext == known {
				ids = append(ids, entry.Name()[:len(entry.Name())-len(ext)])
				break
			}
		}
	}
	return ids, nil
}

// Tenants returns the tenant directories under the root.
func (s *Source) Tenants() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var tenants []string
	for _, entry := range entries {
		if entry.IsDir() {
			tenants = append(tenants, entry.Name())
		}
	}
	return tenants, nil
}

func decode(path string, data []byte) (map[string]any, error) {
	raw := make(map[string]any)
	if filepath.Ext(path) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse flow %s: %w", path, err)
		}
		return raw, nil
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse flow %s: %w", path, err)
	}
	return raw, nil
}
