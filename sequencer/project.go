package sequencer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go-groove/debug"
)

const stampLayout = "2006-01-02_15-04-05"

// ErrNoSaves is returned when loading the latest save of an empty project.
var ErrNoSaves = errors.New("no saves in project")

// SaveInfo represents a saved project file (for listing)
type SaveInfo struct {
	Filename  string
	Name      string // parsed from filename (empty if unnamed)
	Timestamp time.Time
}

// Store keeps projects as folders of timestamped session files.
type Store struct {
	Dir string
	now func() time.Time
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir, now: time.Now}
}

// ProjectsDir returns the default projects directory path
func ProjectsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-groove", "projects"), nil
}

// DefaultStore opens the store in the user's config directory.
func DefaultStore() (*Store, error) {
	dir, err := ProjectsDir()
	if err != nil {
		return nil, err
	}
	return NewStore(dir), nil
}

// ProjectDir returns the path to a specific project
func (s *Store) ProjectDir(name string) string {
	return filepath.Join(s.Dir, name)
}

// ListProjects returns all project folder names
func (s *Store) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// ListSaves returns timestamped saves for a project, newest first
func (s *Store) ListSaves(project string) ([]SaveInfo, error) {
	entries, err := os.ReadDir(s.ProjectDir(project))
	if err != nil {
		if os.IsNotExist(err) {
			return []SaveInfo{}, nil
		}
		return nil, err
	}

	var saves []SaveInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if info, ok := parseSaveName(entry.Name()); ok {
			saves = append(saves, info)
		}
	}

	sort.Slice(saves, func(i, j int) bool {
		if saves[i].Timestamp.Equal(saves[j].Timestamp) {
			return saves[i].Filename > saves[j].Filename
		}
		return saves[i].Timestamp.After(saves[j].Timestamp)
	})
	return saves, nil
}

// parseSaveName reads 2024-01-15_14-30-00.json or 2024-01-15_14-30-00_name.json
func parseSaveName(filename string) (SaveInfo, bool) {
	base := strings.TrimSuffix(filename, ".json")
	if len(base) < len(stampLayout) {
		return SaveInfo{}, false
	}
	ts, err := time.Parse(stampLayout, base[:len(stampLayout)])
	if err != nil {
		return SaveInfo{}, false
	}
	name := ""
	if len(base) > len(stampLayout)+1 && base[len(stampLayout)] == '_' {
		name = base[len(stampLayout)+1:]
	}
	return SaveInfo{Filename: filename, Name: name, Timestamp: ts}, true
}

// Save writes sess to project under a new timestamped filename.
func (s *Store) Save(project, name string, sess Session) (SaveInfo, error) {
	if project == "" {
		project = "untitled"
	}
	dir := s.ProjectDir(project)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return SaveInfo{}, fmt.Errorf("create project: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return SaveInfo{}, fmt.Errorf("encode session: %w", err)
	}

	filename := s.now().Format(stampLayout)
	if name != "" {
		filename += "_" + sanitizeFilename(name)
	}
	filename += ".json"
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return SaveInfo{}, fmt.Errorf("write save: %w", err)
	}
	debug.Log("project", "saved %s/%s", project, filename)
	info, _ := parseSaveName(filename)
	return info, nil
}

// Load reads a save, or the most recent one when filename is empty. The
// pattern record is schema-checked before it is returned.
func (s *Store) Load(project, filename string) (Session, error) {
	if filename == "" {
		saves, err := s.ListSaves(project)
		if err != nil {
			return Session{}, err
		}
		if len(saves) == 0 {
			return Session{}, fmt.Errorf("%s: %w", project, ErrNoSaves)
		}
		filename = saves[0].Filename
	}

	data, err := os.ReadFile(filepath.Join(s.ProjectDir(project), filename))
	if err != nil {
		return Session{}, fmt.Errorf("read save: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("parse %s: %w", filename, err)
	}
	if _, err := sess.Pattern(); err != nil {
		return Session{}, fmt.Errorf("load %s: %w", filename, err)
	}
	debug.Log("project", "loaded %s/%s", project, filename)
	return sess, nil
}

// CreateProject creates a new empty project folder
func (s *Store) CreateProject(name string) error {
	return os.MkdirAll(s.ProjectDir(name), 0755)
}

// DeleteSave deletes a specific save file
func (s *Store) DeleteSave(project, filename string) error {
	return os.Remove(filepath.Join(s.ProjectDir(project), filename))
}

// RenameSave renames a save file (changes the name part, keeps timestamp)
func (s *Store) RenameSave(project, oldFilename, newName string) (string, error) {
	info, ok := parseSaveName(oldFilename)
	if !ok {
		return "", fmt.Errorf("invalid save filename %q", oldFilename)
	}
	stamp := info.Timestamp.Format(stampLayout)

	newFilename := stamp + ".json"
	if newName != "" {
		newFilename = stamp + "_" + sanitizeFilename(newName) + ".json"
	}
	dir := s.ProjectDir(project)
	if err := os.Rename(filepath.Join(dir, oldFilename), filepath.Join(dir, newFilename)); err != nil {
		return "", err
	}
	return newFilename, nil
}

var filenameReplacer = strings.NewReplacer(
	" ", "-", "/", "-", "\\", "-", ":", "-",
	"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
)

// sanitizeFilename removes/replaces characters that are problematic in filenames
func sanitizeFilename(name string) string {
	return filenameReplacer.Replace(name)
}

// DeleteProject deletes entire project folder
func (s *Store) DeleteProject(name string) error {
	return os.RemoveAll(s.ProjectDir(name))
}

// RenameProject renames a project folder
func (s *Store) RenameProject(oldName, newName string) error {
	return os.Rename(s.ProjectDir(oldName), s.ProjectDir(newName))
}
