package config

const (
	// MaxProjectNameLength is the maximum length for project names.
	MaxProjectNameLength = 255

	// MaxSpaceNameLength is the maximum length for space names.
	MaxSpaceNameLength = 255

	// MaxSlugLength is the maximum length for space and document slugs.
	// Slugs become URL path segments, so they are kept well below the
	// practical URL length limits of CDNs.
	MaxSlugLength = 120

	// MaxDocumentTitleLength is the maximum length for document titles.
	MaxDocumentTitleLength = 255

	// MaxHostnameLength is the DNS limit for a fully qualified hostname.
	MaxHostnameLength = 253

	// MaxCustomDomains caps how many hostnames a site mirrors its pointer to.
	MaxCustomDomains = 20

	// MaxPagesPerBuild bounds a single publish. Larger selections fail the
	// build with a validation message instead of exhausting the worker.
	MaxPagesPerBuild = 5000

	// MaxAPISpecSize is the largest OpenAPI document accepted for import.
	MaxAPISpecSize = 5 << 20

	// DefaultBuildListLimit is used when a build listing omits a limit.
	DefaultBuildListLimit = 20

	// MaxBuildListLimit caps build listings.
	MaxBuildListLimit = 100
)

// Cache-Control values for published objects.
const (
	// ImmutableCacheControl is sent with blobs and versioned build artifacts.
	ImmutableCacheControl = "public, max-age=31536000, immutable"

	// PointerCacheControl is sent with latest.json pointers, the only
	// objects whose content changes.
	PointerCacheControl = "public, max-age=5"
)
