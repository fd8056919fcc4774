package domain

// CacheEntry is a stored semantic-cache record, addressed by a content hash
// of its query vector. Entries are never updated in place; an identical
// vector produces the same key and overwrites, a different vector is a new
// entry. Eviction is delegated to the backing store's memory policy.
type CacheEntry struct {
	Key      string
	Vector   []float32
	Query    string
	Response string
	Sources  []SourceRef
}
