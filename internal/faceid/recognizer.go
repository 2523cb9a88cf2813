package faceid

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"github.com/google/renameio"
)

var (
	// ErrModelNotLoaded is returned when classification or a session
	// start is attempted before any trained model exists.
	ErrModelNotLoaded = errors.New("recognizer model not loaded")
	// ErrInsufficientData is returned by Train when no labeled samples
	// are available.
	ErrInsufficientData = errors.New("insufficient training data")
)

// hnswMaxNeighbors is the M parameter of the in-memory search graph.
const hnswMaxNeighbors = 16

// LabeledFace is one normalized training sample with its identity.
type LabeledFace struct {
	UserID int
	Face   *image.Gray
}

// modelFile is the serialized form of a trained model. One global
// model for the whole station, not per user; the search graph is
// rebuilt from the stored vectors on every load.
type modelFile struct {
	TrainedAt time.Time
	Dim       int
	UserIDs   []int
	Vectors   [][]float32
}

// Recognizer classifies normalized face patches against the trained
// sample set using nearest-neighbor search over feature vectors.
// Distance is cosine distance: non-negative, lower is better.
type Recognizer struct {
	mu        sync.RWMutex
	path      string
	graph     *hnsw.Graph[int]
	owners    []int
	trainedAt time.Time
	userCount int
}

// NewRecognizer creates a recognizer persisting to the given path.
// The model is not loaded yet; call Load or Train.
func NewRecognizer(path string) *Recognizer {
	return &Recognizer{path: path}
}

// Loaded reports whether a trained model is available in memory.
func (r *Recognizer) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.graph != nil
}

// TrainedAt returns the training timestamp of the loaded model. Zero
// when no model is loaded. Surfaced in stats so an operator can spot a
// model trained before the last user retirement; staleness is not
// enforced.
func (r *Recognizer) TrainedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trainedAt
}

// Counts returns the number of indexed samples and distinct users in
// the loaded model.
func (r *Recognizer) Counts() (samples, users int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners), r.userCount
}

// Train builds a model from labeled samples, persists it atomically
// and swaps it in. Requires at least one sample; a crash mid-train
// leaves the previous model file intact because the write goes to a
// temp file first and is renamed over the old artifact.
func (r *Recognizer) Train(faces []LabeledFace) error {
	if len(faces) == 0 {
		return ErrInsufficientData
	}

	model := modelFile{
		TrainedAt: time.Now(),
		Dim:       FeatureDim,
		UserIDs:   make([]int, 0, len(faces)),
		Vectors:   make([][]float32, 0, len(faces)),
	}
	for _, f := range faces {
		model.UserIDs = append(model.UserIDs, f.UserID)
		model.Vectors = append(model.Vectors, Features(f.Face))
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(model); err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating model dir: %w", err)
	}
	if err := renameio.WriteFile(r.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing model file: %w", err)
	}

	r.install(model)
	return nil
}

// Load reads the persisted model and rebuilds the in-memory search
// graph. A missing file means "untrained" and maps to
// ErrModelNotLoaded so callers can gate on it with errors.Is.
func (r *Recognizer) Load() error {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrModelNotLoaded
	}
	if err != nil {
		return fmt.Errorf("reading model file: %w", err)
	}

	var model modelFile
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&model); err != nil {
		return fmt.Errorf("decoding model file: %w", err)
	}
	if model.Dim != FeatureDim {
		return fmt.Errorf("model feature dimension %d does not match expected %d", model.Dim, FeatureDim)
	}
	if len(model.UserIDs) != len(model.Vectors) || len(model.UserIDs) == 0 {
		return fmt.Errorf("model file is corrupt: %d labels for %d vectors", len(model.UserIDs), len(model.Vectors))
	}

	r.install(model)
	return nil
}

// install rebuilds the search graph from a decoded model and swaps it
// in under the lock.
func (r *Recognizer) install(model modelFile) {
	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	seen := make(map[int]struct{})
	owners := make([]int, len(model.UserIDs))
	for i, userID := range model.UserIDs {
		g.Add(hnsw.MakeNode(i, model.Vectors[i]))
		owners[i] = userID
		seen[userID] = struct{}{}
	}

	r.mu.Lock()
	r.graph = g
	r.owners = owners
	r.trainedAt = model.TrainedAt
	r.userCount = len(seen)
	r.mu.Unlock()
}

// Classify returns the identity of the nearest trained sample and the
// cosine distance to it. The caller applies the acceptance threshold;
// this method never decides "unknown" by itself.
func (r *Recognizer) Classify(face *image.Gray) (userID int, distance float64, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.graph == nil {
		return 0, 0, ErrModelNotLoaded
	}

	query := Features(face)
	neighbors := r.graph.Search(query, 1)
	if len(neighbors) == 0 {
		return 0, 0, fmt.Errorf("search returned no neighbors")
	}

	best := neighbors[0]
	return r.owners[best.Key], CosineDistance(query, best.Value), nil
}
