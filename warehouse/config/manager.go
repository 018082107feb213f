package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"warehouseplanner/warehouse/engine"
	"warehouseplanner/warehouse/service"
)

var (
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrInvalidScenario  = errors.New("invalid scenario")
)

// Manager handles scenario loading and caching
type Manager struct {
	scenarioDir     string
	defaultScenario *ScenarioConfig
	scenarios       map[string]*ScenarioConfig
	mu              sync.RWMutex
}

// NewManager creates a scenario manager over scenarioDir, creating the
// directory when absent.
func NewManager(scenarioDir string) (*Manager, error) {
	if err := os.MkdirAll(scenarioDir, 0755); err != nil {
		return nil, fmt.Errorf("create scenario directory: %w", err)
	}

	m := &Manager{
		scenarioDir: scenarioDir,
		scenarios:   make(map[string]*ScenarioConfig),
	}
	if err := m.loadDefaultScenario(); err != nil {
		return nil, fmt.Errorf("failed to load default scenario: %w", err)
	}
	return m, nil
}

// LoadScenario loads a scenario by name
func (m *Manager) LoadScenario(name string) (*ScenarioConfig, error) {
	m.mu.RLock()
	if cfg, exists := m.scenarios[name]; exists {
		m.mu.RUnlock()
		return cfg, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if cfg, exists := m.scenarios[name]; exists {
		return cfg, nil
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}
	data, err := os.ReadFile(filepath.Join(m.scenarioDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrScenarioNotFound
		}
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	cfg, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	m.scenarios[name] = cfg
	return cfg, nil
}

// ListScenarios returns information about all available scenarios
func (m *Manager) ListScenarios() ([]*service.ScenarioInfo, error) {
	entries, err := os.ReadDir(m.scenarioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var infos []*service.ScenarioInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		cfg, err := m.LoadScenario(name)
		if err != nil {
			// Skip invalid scenarios
			continue
		}
		infos = append(infos, &service.ScenarioInfo{
			Filename:    entry.Name(),
			ScenarioID:  name,
			Name:        cfg.Name,
			Description: cfg.Description,
			Width:       cfg.Width,
			Height:      cfg.Height,
			Robots:      len(cfg.Robots),
			Packages:    len(cfg.Packages),
		})
	}
	return infos, nil
}

// GetDefault returns the default scenario
func (m *Manager) GetDefault() *ScenarioConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultScenario
}

// SetDefault sets the default scenario by name
func (m *Manager) SetDefault(name string) error {
	cfg, err := m.LoadScenario(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultScenario = cfg
	return nil
}

// SaveScenario validates and writes a scenario to disk
func (m *Manager) SaveScenario(name string, cfg *ScenarioConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.scenarioDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}

	m.mu.Lock()
	m.scenarios[name] = cfg
	m.mu.Unlock()
	return nil
}

// LoadSpec loads a scenario by name and converts it to an engine spec
func (m *Manager) LoadSpec(name string) (engine.ScenarioSpec, error) {
	cfg, err := m.LoadScenario(name)
	if err != nil {
		return engine.ScenarioSpec{}, err
	}
	return cfg.Spec(), nil
}

// DefaultSpec returns the default scenario's name and engine spec
func (m *Manager) DefaultSpec() (string, engine.ScenarioSpec) {
	cfg := m.GetDefault()
	return cfg.Name, cfg.Spec()
}

// SaveRaw validates a raw scenario document and stores it under name
func (m *Manager) SaveRaw(name string, raw []byte) error {
	cfg, err := ParseScenario(raw)
	if err != nil {
		return err
	}
	return m.SaveScenario(name, cfg)
}

// RefreshCache reloads all cached scenarios from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.scenarios = make(map[string]*ScenarioConfig)
	m.mu.Unlock()
	return m.loadDefaultScenario()
}

// loadDefaultScenario prefers default.json, then the first valid scenario on
// disk, then the built-in document.
func (m *Manager) loadDefaultScenario() error {
	cfg, err := m.LoadScenario("default")
	if err != nil {
		infos, listErr := m.ListScenarios()
		if listErr == nil && len(infos) > 0 {
			cfg, err = m.LoadScenario(infos[0].ScenarioID)
		}
		if cfg == nil || err != nil {
			cfg = DefaultScenario()
		}
	}
	m.mu.Lock()
	m.defaultScenario = cfg
	m.mu.Unlock()
	return nil
}
