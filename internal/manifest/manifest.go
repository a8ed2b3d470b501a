// Package manifest records what a generation pass produced: every output
// path with the sources it came from and a content hash.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Output kinds.
const (
	KindUnit   = "unit"
	KindPage   = "page"
	KindFeed   = "feed"
	KindIndex  = "index"
	KindStatic = "static"
)

// Manifest represents a complete record of a generation's inputs and outputs.
type Manifest struct {
	BuildID   string            `json:"build_id"`
	Timestamp time.Time         `json:"timestamp"`
	Inputs    Inputs            `json:"inputs"`
	Outputs   map[string]Output `json:"outputs"`

	mu sync.Mutex
}

// Inputs captures all inputs to the generation.
type Inputs struct {
	ConfigHash string        `json:"config_hash"`
	Revision   string        `json:"revision,omitempty"`
	Engines    []EngineInput `json:"engines"`
}

// EngineInput summarises one engine's contribution.
type EngineInput struct {
	Name    string   `json:"name"`
	Units   int      `json:"units"`
	Plugins []string `json:"plugins,omitempty"`
	// Fingerprints maps unit source paths to content fingerprints.
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
}

// Output is one written file.
type Output struct {
	Kind    string   `json:"kind"`
	Sources []string `json:"sources,omitempty"`
	Hash    string   `json:"hash"`
}

// New returns an empty manifest.
func New(buildID string, ts time.Time) *Manifest {
	return &Manifest{BuildID: buildID, Timestamp: ts, Outputs: map[string]Output{}}
}

// Add records an output. It is safe for concurrent use.
func (m *Manifest) Add(path, kind string, sources []string, data []byte) {
	sum := sha256.Sum256(data)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outputs[path] = Output{Kind: kind, Sources: sources, Hash: hex.EncodeToString(sum[:])}
}

// Paths lists output paths in sorted order.
func (m *Manifest) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Outputs))
	for p := range m.Outputs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ToJSON serializes the manifest to JSON.
func (m *Manifest) ToJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if m.Outputs == nil {
		m.Outputs = map[string]Output{}
	}
	return &m, nil
}

// Load reads a manifest file. A missing file yields nil without error.
func Load(path string) (*Manifest, error) {
	// #nosec G304 -- path is the manifest location in the state directory.
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return FromJSON(data)
}

// Save writes the manifest atomically.
func (m *Manifest) Save(path string) error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// Hash computes a deterministic hash of the manifest's inputs and outputs.
// Two passes over unchanged sources hash identically.
func (m *Manifest) Hash() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hashInput := struct {
		Inputs  Inputs            `json:"inputs"`
		Outputs map[string]Output `json:"outputs"`
	}{m.Inputs, m.Outputs}

	data, err := json.Marshal(hashInput)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// Diff summarises output changes between two manifests.
type Diff struct {
	Added     []string `json:"added,omitempty"`
	Removed   []string `json:"removed,omitempty"`
	Changed   []string `json:"changed,omitempty"`
	Unchanged int      `json:"unchanged"`
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare diffs cur against prev; a nil prev counts every output as added.
func Compare(prev, cur *Manifest) Diff {
	var d Diff
	var before map[string]Output
	if prev != nil {
		before = prev.Outputs
	}
	for _, p := range cur.Paths() {
		old, ok := before[p]
		switch {
		case !ok:
			d.Added = append(d.Added, p)
		case old.Hash != cur.Outputs[p].Hash:
			d.Changed = append(d.Changed, p)
		default:
			d.Unchanged++
		}
	}
	for p := range before {
		if _, ok := cur.Outputs[p]; !ok {
			d.Removed = append(d.Removed, p)
		}
	}
	sort.Strings(d.Removed)
	return d
}
