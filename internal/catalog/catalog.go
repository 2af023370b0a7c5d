// Package catalog loads the scenario definitions (goals and reference
// documents) from YAML files.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
	"roleplay-insights-go/internal/types"
)

type Catalog struct {
	mu        sync.RWMutex
	scenarios map[string]*types.Scenario
}

func New(scenarios ...types.Scenario) *Catalog {
	c := &Catalog{scenarios: make(map[string]*types.Scenario)}
	for i := range scenarios {
		c.Put(scenarios[i])
	}
	return c
}

// Load reads every *.yaml / *.yml file in dir. A missing directory yields an
// empty catalog. Reference documents with a relative path are read from disk.
func Load(dir string) (*Catalog, error) {
	c := New()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		sc, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		c.Put(sc)
	}
	return c, nil
}

func loadFile(path string) (types.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Scenario{}, fmt.Errorf("read %s: %w", path, err)
	}
	var sc types.Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return types.Scenario{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if sc.ScenarioID == "" {
		sc.ScenarioID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	for i, ref := range sc.References {
		if ref.Text != "" || ref.Path == "" {
			continue
		}
		p := ref.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(path), p)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return types.Scenario{}, fmt.Errorf("scenario %s reference %s: %w", sc.ScenarioID, ref.ID, err)
		}
		sc.References[i].Text = string(b)
	}
	sort.SliceStable(sc.Goals, func(i, j int) bool {
		return sc.Goals[i].Priority < sc.Goals[j].Priority
	})
	return sc, nil
}

func (c *Catalog) Put(sc types.Scenario) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := sc
	c.scenarios[sc.ScenarioID] = &s
}

// Get returns types.ErrScenarioNotFound for unknown ids.
func (c *Catalog) Get(id string) (*types.Scenario, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sc, ok := c.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("scenario %q: %w", id, types.ErrScenarioNotFound)
	}
	return sc, nil
}

func (c *Catalog) List() []*types.Scenario {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*types.Scenario, 0, len(c.scenarios))
	for _, sc := range c.scenarios {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScenarioID < out[j].ScenarioID })
	return out
}
