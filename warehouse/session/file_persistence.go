package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"warehouseplanner/warehouse/engine"
	"warehouseplanner/warehouse/service"
)

// FilePersistence implements SessionPersistence using file system storage
type FilePersistence struct {
	sessionsDir string
}

// NewFilePersistence creates a new file-based session persistence layer
func NewFilePersistence(sessionsDir string) (*FilePersistence, error) {
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FilePersistence{sessionsDir: sessionsDir}, nil
}

// Save persists a session to a JSON file
func (fp *FilePersistence) Save(sess *service.Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}

	data := PersistedSessionData{
		ID:             sess.ID,
		ScenarioName:   sess.ScenarioName,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Spec:           sess.Spec,
		Obstacles:      sess.Scenario.World.Obstacles(),
		Robots:         sess.Scenario.Robots,
		Packages:       sess.Scenario.Packages,
		ProblemFile:    sess.ProblemFile,
		PlanFile:       sess.PlanFile,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	if err := os.WriteFile(fp.getFilePath(sess.ID), jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load retrieves a session from a JSON file and rebuilds the live world:
// grid from the spec dimensions, obstacles and entities from the saved
// state, carried-package links from the robots' carrying lists.
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	filePath := fp.getFilePath(id)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	world, err := engine.NewGridWorld(data.Spec.Width, data.Spec.Height)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild world: %w", err)
	}
	for _, o := range data.Obstacles {
		if err := world.AddObstacle(o.X, o.Y); err != nil {
			return nil, fmt.Errorf("failed to restore obstacle: %w", err)
		}
	}

	packagesByID := make(map[string]*engine.Package, len(data.Packages))
	for _, p := range data.Packages {
		packagesByID[p.ID] = p
	}
	for _, r := range data.Robots {
		r.Carrying = r.Carrying[:0]
		for _, pkgID := range r.CarryingIDs {
			pkg, ok := packagesByID[pkgID]
			if !ok {
				return nil, fmt.Errorf("session %s: robot %s carries unknown package %q", id, r.ID, pkgID)
			}
			r.Carrying = append(r.Carrying, pkg)
		}
		if r.CarryingIDs == nil {
			r.CarryingIDs = []string{}
		}
	}

	return &service.Session{
		ID:             data.ID,
		ScenarioName:   data.ScenarioName,
		Spec:           data.Spec,
		Scenario:       &engine.Scenario{World: world, Robots: data.Robots, Packages: data.Packages},
		ProblemFile:    data.ProblemFile,
		PlanFile:       data.PlanFile,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}
	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns all persisted session ids
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	return ids, nil
}

// Exists checks if a session file exists
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

// getFilePath returns the full file path for a session id
func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.sessionsDir, fmt.Sprintf("%s.json", strings.ToLower(id)))
}
