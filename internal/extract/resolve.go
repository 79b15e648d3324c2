// internal/extract/resolve.go
package extract

// Resolver produces a value, or reports that it could not.
type Resolver[T any] func() (T, bool)

// FirstOf runs resolvers in order and returns the first value found, or
// fallback when none succeeds.
func FirstOf[T any](fallback T, resolvers ...Resolver[T]) T {
	for _, r := range resolvers {
		if r == nil {
			continue
		}
		if v, ok := r(); ok {
			return v
		}
	}
	return fallback
}
