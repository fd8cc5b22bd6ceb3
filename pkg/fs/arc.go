package fs

// ArcResult is a shared-ownership handle over a ScanResult, so that repeated
// cache hits on the same key return without deep-copying the (potentially
// large) items vector. Go's garbage collector already keeps the underlying
// value alive for as long as any ArcResult references it, so the "shared
// ownership" the spec calls for falls out of holding a pointer to an
// immutable value — the discipline that matters is never mutating through
// it: View() hands out a private copy, while Peek() and Overlay() share the
// underlying value with callers that only read it.
type ArcResult struct {
	result *ScanResult
}

// NewArcResult wraps a ScanResult that must not be mutated afterwards by
// the caller inserting it — ownership of it passes to the ArcResult.
func NewArcResult(r *ScanResult) *ArcResult {
	return &ArcResult{result: r}
}

// View returns a copy of the wrapped result safe for the caller to mutate
// (e.g. zero out ScanTimeSeconds) and serialize independently of other
// holders of the same ArcResult.
func (a *ArcResult) View() *ScanResult {
	if a == nil {
		return nil
	}
	return a.result.Clone()
}

// Peek returns the shared, read-only value directly, for callers (such as
// the codec) that only read fields and never retain or mutate it.
func (a *ArcResult) Peek() *ScanResult {
	if a == nil {
		return nil
	}
	return a.result
}

// Overlay is the zero-copy path for a memory-cache hit: it returns a shallow
// copy of the shared result with only the per-response fields a cache hit
// needs to rewrite (Path, ScanTimeSeconds, CacheHit, CacheSource) set on the
// copy. Items is not copied — the returned value's Items slice is the same
// backing array as every other holder of this ArcResult, which is safe
// because callers only ever read it (serialize it or print it), never sort
// or mutate it in place. Use View instead if a caller genuinely needs to
// mutate Items itself.
func (a *ArcResult) Overlay(path, cacheSource string) *ScanResult {
	if a == nil {
		return nil
	}
	out := *a.result
	out.Path = path
	out.ScanTimeSeconds = 0
	out.CacheHit = true
	out.CacheSource = cacheSource
	return &out
}
