package database

// HNSW index parameters for feature print search
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWSearchMultiplier is the factor to request more candidates from HNSW
	// to ensure we have enough after distance filtering.
	HNSWSearchMultiplier = 3

	// HNSWMinCandidates is the minimum candidate pool for a filtered search.
	HNSWMinCandidates = 100
)

// Setting keys
const (
	SettingMaxPhotoCount  = "maxPhotoCount"
	SettingRequiredLabels = "requiredLabels"
	SettingExcludedLabels = "excludedLabels"
	SettingResetOnce      = "resetOnce"
)
