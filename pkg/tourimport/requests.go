package tourimport

// MigrateImageRequest contains parameters for migrating one image.
type MigrateImageRequest struct {
	// SourceURL is where the raw bytes are fetched from.
	SourceURL string

	// Role selects the optimizer preset and the destination path segment.
	Role ImageRole

	// Preset overrides the role-derived optimizer preset when non-empty.
	Preset string

	// Page is the owning page; required.
	Page *Page

	// Tour optionally links the image to a tour as well.
	Tour *Tour

	// Destination groups the asset path ("tours/<destination>/...").
	Destination string

	// Alt and Title are carried onto the Image row.
	Alt   string
	Title string

	// StorageBackend overrides the service default when non-empty.
	StorageBackend string

	// MaxBytes overrides the raw download cap when positive.
	MaxBytes int64
}
