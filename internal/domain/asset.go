package domain

// MediaAsset is a raw playable item from the asset catalog, keyed by a noisy
// filename. Immutable per fetch.
type MediaAsset struct {
	AssetID      string `json:"asset_id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	Path         string `json:"path"`
	SizeBytes    int64  `json:"size_bytes"`
	MimeType     string `json:"mime_type"`
	DriveID      int    `json:"drive_id"`
	ModifiedTime string `json:"modified_time,omitempty"`
	IsVideo      bool   `json:"is_video"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}
