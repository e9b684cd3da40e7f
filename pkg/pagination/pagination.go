package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 50
	// MaxLimit caps how many rows any listing can request.
	MaxLimit = 200
)

// Clamp returns fallback for non-positive limits and caps the result at
// MaxLimit. A non-positive fallback falls back to DefaultLimit.
func Clamp(limit, fallback int) int {
	if fallback <= 0 {
		fallback = DefaultLimit
	}
	if limit <= 0 {
		limit = fallback
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// BatchSize normalizes scan batch sizes for background jobs. Unlike Clamp it
// applies no upper bound, batch scans are not user-facing.
func BatchSize(size, fallback int) int {
	if size <= 0 {
		return fallback
	}
	return size
}
