package manifest

const (
	DefaultStaticPartition = "pocketchimes-static-v2"
	DefaultMediaPartition  = "pocketchimes-media-v2"
)

// Long-lived iconography.
var defaultStaticPaths = []string{
	"/favicons/favicon_16_transparent.png",
	"/favicons/favicon_32_transparent.png",
	"/favicons/favicon_48_transparent.png",
	"/favicons/favicon_64_transparent.png",
	"/favicons/favicon_180_transparent.png",
	"/favicons/favicon_192_transparent.png",
	"/favicons/favicon_256_transparent.png",
	"/favicons/favicon_384_transparent.png",
	"/favicons/favicon_512_transparent.png",
	"/favicons/favicon_2048_transparent.png",
	"/favicons/favicon_maskable_512_transparent.png",
	"/favicons/site.webmanifest",
}

func DefaultStaticPaths() []string {
	paths := make([]string, len(defaultStaticPaths))
	copy(paths, defaultStaticPaths)
	return paths
}

// DefaultMediaPaths is empty: media is cached on first fetch unless a
// deployment lists its samples in the config file.
func DefaultMediaPaths() []string {
	return []string{}
}

func DefaultStatic() Manifest {
	return New(DefaultStaticPartition, DefaultStaticPaths())
}

func DefaultMedia() Manifest {
	return New(DefaultMediaPartition, DefaultMediaPaths())
}
