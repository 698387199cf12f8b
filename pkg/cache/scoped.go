package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis or MongoDB backend without seeing each other's entries.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// GraphKey generates a prefixed key for grid caching.
func (k *ScopedKeyer) GraphKey(repo string, tips RefTips, opts GraphKeyOpts) string {
	return k.prefix + k.inner.GraphKey(repo, tips, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(graphKey string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(graphKey, opts)
}

// GenerationKey generates a prefixed invalidation key.
func (k *ScopedKeyer) GenerationKey(repo string) string {
	return k.prefix + k.inner.GenerationKey(repo)
}
