// Package samples manages the labeled face dataset on disk: one
// normalized grayscale image per sample, named User.<id>.<n>.png under
// a single root. The recognizer trains on this set in bulk; deleting a
// user's samples must accompany user retirement so the next training
// run matches the ledger's user set.
package samples

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const samplePrefix = "User."

// Sample is one stored face image with its identity label.
type Sample struct {
	UserID int
	Path   string
	Face   *image.Gray
}

// Store is a directory of labeled face samples.
type Store struct {
	root string
}

// NewStore creates the sample root if needed and returns the store.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating samples dir: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the dataset root directory.
func (s *Store) Root() string {
	return s.root
}

// parseSampleName extracts (userID, index) from User.<id>.<n>.png.
func parseSampleName(name string) (userID, index int, ok bool) {
	if !strings.HasPrefix(name, samplePrefix) || !strings.HasSuffix(name, ".png") {
		return 0, 0, false
	}
	parts := strings.Split(strings.TrimSuffix(name, ".png"), ".")
	if len(parts) != 3 {
		return 0, 0, false
	}
	userID, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	index, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, false
	}
	return userID, index, true
}

// Save stores one normalized face sample for a user and returns its
// path. Sample indexes are per user and monotonically increasing.
func (s *Store) Save(userID int, face *image.Gray) (string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return "", fmt.Errorf("reading samples dir: %w", err)
	}

	next := 1
	for _, entry := range entries {
		id, index, ok := parseSampleName(entry.Name())
		if ok && id == userID && index >= next {
			next = index + 1
		}
	}

	path := filepath.Join(s.root, fmt.Sprintf("%s%d.%d.png", samplePrefix, userID, next))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating sample file: %w", err)
	}
	if err := png.Encode(f, face); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encoding sample: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing sample file: %w", err)
	}
	return path, nil
}

// LoadAll reads every sample in the store, ordered by user ID then
// sample index. Unreadable files are skipped; training tolerates a
// few bad captures.
func (s *Store) LoadAll() ([]Sample, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading samples dir: %w", err)
	}

	var loaded []Sample
	for _, entry := range entries {
		userID, _, ok := parseSampleName(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		face, err := loadGray(path)
		if err != nil {
			continue
		}
		loaded = append(loaded, Sample{UserID: userID, Path: path, Face: face})
	}

	sort.Slice(loaded, func(i, j int) bool {
		if loaded[i].UserID != loaded[j].UserID {
			return loaded[i].UserID < loaded[j].UserID
		}
		return loaded[i].Path < loaded[j].Path
	})
	return loaded, nil
}

// ListByUser reads the stored samples of one user, ordered by sample
// index. Unreadable files are skipped, like in LoadAll.
func (s *Store) ListByUser(userID int) ([]Sample, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading samples dir: %w", err)
	}

	var loaded []Sample
	for _, entry := range entries {
		id, _, ok := parseSampleName(entry.Name())
		if !ok || id != userID {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		face, err := loadGray(path)
		if err != nil {
			continue
		}
		loaded = append(loaded, Sample{UserID: userID, Path: path, Face: face})
	}

	sort.Slice(loaded, func(i, j int) bool {
		_, a, _ := parseSampleName(filepath.Base(loaded[i].Path))
		_, b, _ := parseSampleName(filepath.Base(loaded[j].Path))
		return a < b
	})
	return loaded, nil
}

// CountByUser returns the number of stored samples per user ID.
func (s *Store) CountByUser() (map[int]int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading samples dir: %w", err)
	}
	counts := make(map[int]int)
	for _, entry := range entries {
		if userID, _, ok := parseSampleName(entry.Name()); ok {
			counts[userID]++
		}
	}
	return counts, nil
}

// DeleteUser removes all samples of a user and reports how many files
// were deleted. Used together with ledger retirement; the two steps
// are sequential, not atomic.
func (s *Store) DeleteUser(userID int) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("reading samples dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		id, _, ok := parseSampleName(entry.Name())
		if !ok || id != userID {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, entry.Name())); err != nil {
			return removed, fmt.Errorf("removing sample %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func loadGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, err
	}
	if g, ok := img.(*image.Gray); ok {
		return g, nil
	}
	// PNG grayscale decodes to *image.Gray; anything else was written
	// by hand and gets converted.
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst, nil
}
