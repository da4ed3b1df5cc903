package model

// CityGalleryItem is one city in the public gallery listing.
type CityGalleryItem struct {
	City         string `json:"city"`
	Country      string `json:"country"`
	Slug         string `json:"slug"`
	PreviewImage string `json:"preview_image"`
	ThemeCount   int    `json:"theme_count"`
	CreatedAt    string `json:"created_at"`
}

// GalleryPage is a paginated slice of the gallery listing.
type GalleryPage struct {
	Cities []CityGalleryItem `json:"cities"`
	Total  int               `json:"total"`
	Page   int               `json:"page"`
	Limit  int               `json:"limit"`
}

// PosterItem describes one published poster of a city.
type PosterItem struct {
	Theme            string  `json:"theme"`
	ThemeDisplayName string  `json:"theme_display_name"`
	PosterURL        string  `json:"poster_url"`
	ThumbnailURL     *string `json:"thumbnail_url"`
	FileSize         int64   `json:"file_size"`
	Format           string  `json:"format"`
	CreatedAt        string  `json:"created_at"`
	PosterSize       *string `json:"poster_size"`
	SizeLabel        *string `json:"size_label"`
}

// CityDetail lists every poster of one gallery city.
type CityDetail struct {
	City    string       `json:"city"`
	Slug    string       `json:"slug"`
	Posters []PosterItem `json:"posters"`
}
