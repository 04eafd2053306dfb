package cache

import "fmt"

// fmtKey is the fallback canonicalization for cache keys that don't
// implement keyer.
func fmtKey(key interface{}) string {
	return fmt.Sprintf("%#v", key)
}
