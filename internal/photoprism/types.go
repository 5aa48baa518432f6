package photoprism

// Album represents a PhotoPrism album
type Album struct {
	UID         string `json:"UID"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
	PhotoCount  int    `json:"PhotoCount"`
	Type        string `json:"Type"`
	CreatedAt   string `json:"CreatedAt"`
}

// Album types understood by GetAlbums
const (
	AlbumTypeAlbum  = "album"
	AlbumTypeMoment = "moment"
)

// Photo represents a PhotoPrism photo as returned by the search API
type Photo struct {
	UID          string  `json:"UID"`
	Title        string  `json:"Title"`
	TakenAt      string  `json:"TakenAt"`
	TakenAtLocal string  `json:"TakenAtLocal"`
	Type         string  `json:"Type"`
	Lat          float64 `json:"Lat"`
	Lng          float64 `json:"Lng"`
	Hash         string  `json:"Hash"`
	Width        int     `json:"Width"`
	Height       int     `json:"Height"`
	OriginalName string  `json:"OriginalName"`
	FileName     string  `json:"FileName"`
}

// PhotoDetails is the subset of /photos/{uid} used to find the primary file
type PhotoDetails struct {
	UID   string     `json:"UID"`
	Files []FileInfo `json:"Files"`
}

// FileInfo is a file attached to a photo
type FileInfo struct {
	UID     string `json:"UID"`
	Hash    string `json:"Hash"`
	Primary bool   `json:"Primary"`
}

// PrimaryHash returns the hash of the primary file, falling back to the first file.
func (d *PhotoDetails) PrimaryHash() string {
	for _, f := range d.Files {
		if f.Primary {
			return f.Hash
		}
	}
	if len(d.Files) > 0 {
		return d.Files[0].Hash
	}
	return ""
}
