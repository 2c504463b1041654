package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const schemaVersion = 1

// Entry records a process started through the CLI so later invocations can
// stop it by name.
type Entry struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	PGID      int       `json:"pgid,omitempty"`
	Command   []string  `json:"command"`
	Status    string    `json:"status"`
	Result    string    `json:"result,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Index struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() (Index, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Index{Version: schemaVersion, Entries: []Entry{}}, nil
		}
		return Index{}, err
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, err
	}
	if idx.Version == 0 {
		idx.Version = schemaVersion
	}
	if idx.Entries == nil {
		idx.Entries = []Entry{}
	}
	return idx, nil
}

func (s *Store) Save(idx Index) error {
	idx.Version = schemaVersion
	if idx.Entries == nil {
		idx.Entries = []Entry{}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmpPath := s.path + ".tmp"

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *Store) Upsert(entry Entry) error {
	idx, err := s.Load()
	if err != nil {
		return err
	}

	entry.Name = strings.TrimSpace(entry.Name)
	if entry.Name == "" || entry.PID <= 0 {
		return errors.New("registry entry is incomplete")
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	replaced := false
	for i := range idx.Entries {
		if idx.Entries[i].Name == entry.Name {
			if entry.StartedAt.IsZero() {
				entry.StartedAt = idx.Entries[i].StartedAt
			}
			idx.Entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Entries = append(idx.Entries, entry)
	}

	sort.Slice(idx.Entries, func(i, j int) bool {
		return idx.Entries[i].Name < idx.Entries[j].Name
	})
	return s.Save(idx)
}

// SetStatus updates the status of the named entry. Unknown names are ignored.
func (s *Store) SetStatus(name, status, result string) error {
	idx, err := s.Load()
	if err != nil {
		return err
	}
	for i := range idx.Entries {
		if idx.Entries[i].Name == name {
			idx.Entries[i].Status = status
			idx.Entries[i].Result = result
			idx.Entries[i].UpdatedAt = time.Now().UTC()
			return s.Save(idx)
		}
	}
	return nil
}

// Transition moves the named entry to status after validate accepts the
// stored status. Unknown names are ignored.
func (s *Store) Transition(name, status, result string, validate func(from, to string) error) error {
	idx, err := s.Load()
	if err != nil {
		return err
	}
	for i := range idx.Entries {
		if idx.Entries[i].Name != name {
			continue
		}
		if validate != nil {
			if err := validate(idx.Entries[i].Status, status); err != nil {
				return err
			}
		}
		idx.Entries[i].Status = status
		idx.Entries[i].Result = result
		idx.Entries[i].UpdatedAt = time.Now().UTC()
		return s.Save(idx)
	}
	return nil
}

func (s *Store) RemoveByName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	idx, err := s.Load()
	if err != nil {
		return err
	}

	out := make([]Entry, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		if e.Name != name {
			out = append(out, e)
		}
	}
	idx.Entries = out
	return s.Save(idx)
}

// Resolve finds an entry by name first, then by pid.
func (s *Store) Resolve(ref string) (Entry, bool, error) {
	idx, err := s.Load()
	if err != nil {
		return Entry{}, false, err
	}
	needle := strings.TrimSpace(ref)
	if needle == "" {
		return Entry{}, false, nil
	}

	for _, e := range idx.Entries {
		if e.Name == needle {
			return e, true, nil
		}
	}
	if pid, err := strconv.Atoi(needle); err == nil {
		for _, e := range idx.Entries {
			if e.PID == pid {
				return e, true, nil
			}
		}
	}
	return Entry{}, false, nil
}

func (s *Store) List() ([]Entry, error) {
	idx, err := s.Load()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(idx.Entries))
	copy(entries, idx.Entries)
	return entries, nil
}
