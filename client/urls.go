package client

// URLBuilder constructs URLs for a registry.
type URLBuilder interface {
	// Download returns the tarball URL for name at version, or "" when the
	// registry has no predictable layout.
	Download(name, version string) string
}

// BaseURLs provides a default URLBuilder implementation.
type BaseURLs struct {
	DownloadFn func(name, version string) string
}

func (b *BaseURLs) Download(name, version string) string {
	if b.DownloadFn != nil {
		return b.DownloadFn(name, version)
	}
	return ""
}
