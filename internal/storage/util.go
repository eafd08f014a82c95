package storage

// GetLocalBasePath returns the base filesystem path for a local storage
// backend, or fallback for anything that isn't one.
func GetLocalBasePath(backend Backend, fallback string) string {
	if b, ok := backend.(*LocalBackend); ok {
		return b.GetBasePath()
	}
	return fallback
}
