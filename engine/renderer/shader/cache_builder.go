package shader

// CacheBuilderOption is a functional option for configuring a Cache via NewCache.
type CacheBuilderOption func(*cache)

// WithLabel sets the prefix of the debug labels given to compiled GPU objects.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - CacheBuilderOption: a function that sets the label
func WithLabel(label string) CacheBuilderOption {
	return func(c *cache) {
		c.label = label
	}
}

// WithTemplates replaces the embedded uber templates.
//
// Parameters:
//   - vertex: the vertex stage template
//   - fragment: the fragment stage template
//
// Returns:
//   - CacheBuilderOption: a function that sets both templates
func WithTemplates(vertex, fragment string) CacheBuilderOption {
	return func(c *cache) {
		c.vertexTemplate = vertex
		c.fragmentTemplate = fragment
	}
}
