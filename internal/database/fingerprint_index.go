package database

import (
	"cmp"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/photo-curator/internal/fingerprint"
)

// ErrIndexEmpty is returned when searching an index without data
var ErrIndexEmpty = errors.New("index not initialized")

// Neighbor is a search hit
type Neighbor struct {
	AssetID  string  `json:"asset_id"`
	Distance float64 `json:"distance"`
}

// FingerprintIndex wraps an HNSW graph keyed by asset ID for nearest
// neighbor search over feature prints of a single model
type FingerprintIndex struct {
	graph   *hnsw.Graph[string]
	byAsset map[string]*StoredFingerprint
	mu      sync.RWMutex
}

// NewFingerprintIndex creates a new empty index
func NewFingerprintIndex() *FingerprintIndex {
	return &FingerprintIndex{
		byAsset: make(map[string]*StoredFingerprint),
	}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index content with prints
func (h *FingerprintIndex) Build(prints []StoredFingerprint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.graph = nil
	h.byAsset = make(map[string]*StoredFingerprint, len(prints))
	for i := range prints {
		h.addLocked(&prints[i])
	}
}

// Add inserts or replaces one print
func (h *FingerprintIndex) Add(fp StoredFingerprint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addLocked(&fp)
}

func (h *FingerprintIndex) addLocked(fp *StoredFingerprint) {
	if len(fp.Vector) == 0 {
		return
	}
	if h.graph == nil {
		h.graph = newGraph()
	}
	h.graph.Add(hnsw.MakeNode(fp.AssetID, fp.Vector))
	h.byAsset[fp.AssetID] = fp
}

// Get returns the indexed print for an asset
func (h *FingerprintIndex) Get(assetID string) *StoredFingerprint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byAsset[assetID]
}

// Count returns the number of indexed prints
func (h *FingerprintIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byAsset)
}

// Search finds up to k nearest neighbors closer than maxDistance, nearest
// first. The query asset itself is skipped when excludeID is set.
func (h *FingerprintIndex) Search(query []float32, k int, maxDistance float64, excludeID string) ([]Neighbor, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil || len(h.byAsset) == 0 {
		return nil, ErrIndexEmpty
	}

	// Search with more candidates for better recall after filtering
	searchK := max(k*HNSWSearchMultiplier, HNSWMinCandidates)
	candidates := h.graph.Search(query, searchK)

	out := make([]Neighbor, 0, k)
	seen := make(map[string]bool, len(candidates))
	for _, n := range candidates {
		if n.Key == excludeID || seen[n.Key] {
			continue
		}
		seen[n.Key] = true
		fp, ok := h.byAsset[n.Key]
		if !ok {
			continue
		}
		dist, err := fingerprint.CosineDistance(query, fp.Vector)
		if err != nil || dist >= maxDistance {
			continue
		}
		out = append(out, Neighbor{AssetID: n.Key, Distance: dist})
	}
	// Graph order is approximate, distances are exact.
	slices.SortFunc(out, func(a, b Neighbor) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Save writes the indexed prints to path. The graph is rebuilt on Load.
func (h *FingerprintIndex) Save(path string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.byAsset) == 0 {
		// Remove existing file if index is empty
		os.Remove(path)
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer f.Close()

	prints := make([]StoredFingerprint, 0, len(h.byAsset))
	for _, fp := range h.byAsset {
		prints = append(prints, *fp)
	}
	if err := gob.NewEncoder(f).Encode(prints); err != nil {
		return fmt.Errorf("failed to encode prints: %w", err)
	}
	return nil
}

// Load rebuilds the index from a file written by Save
func (h *FingerprintIndex) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	var prints []StoredFingerprint
	if err := gob.NewDecoder(f).Decode(&prints); err != nil {
		return fmt.Errorf("failed to decode prints: %w", err)
	}
	h.Build(prints)
	return nil
}
