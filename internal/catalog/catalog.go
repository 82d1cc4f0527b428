package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog is the set of products keyed by name.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]*Product
}

func NewCatalog() *Catalog {
	return &Catalog{products: make(map[string]*Product)}
}

// Add registers a product. A second product with the same name is rejected.
func (c *Catalog) Add(p *Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.products[p.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProduct, p.Name())
	}
	c.products[p.Name()] = p
	return nil
}

func (c *Catalog) Get(name string) (*Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, name)
	}
	return p, nil
}

// List returns all products sorted by name.
func (c *Catalog) List() []*Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

// seedFile is the on-disk shape of a catalog seed.
//
//	products:
//	  - name: Widget
//	    price: 10
//	    available: 5
type seedFile struct {
	Products []struct {
		Name      string  `yaml:"name"`
		Price     float64 `yaml:"price"`
		Available int     `yaml:"available"`
	} `yaml:"products"`
}

// LoadCatalog reads a YAML seed file. A missing file yields an empty catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewCatalog(), nil
		}
		return nil, err
	}
	return ParseCatalog(data)
}

// ParseCatalog builds a catalog from YAML seed data.
func ParseCatalog(data []byte) (*Catalog, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing catalog seed: %w", err)
	}

	c := NewCatalog()
	for i, entry := range seed.Products {
		p, err := NewProduct(entry.Name, entry.Price, entry.Available)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if err := c.Add(p); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
	}
	return c, nil
}
