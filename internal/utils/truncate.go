package utils

// Truncate returns s cut to at most n bytes, with an ellipsis marker when
// anything was cut. Used to keep logged response bodies bounded.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
