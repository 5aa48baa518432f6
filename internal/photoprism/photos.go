package photoprism

import (
	"context"
	"fmt"
	"net/url"
)

// GetPhotos retrieves photos from PhotoPrism with an optional search query and ordering
// Query examples: "type:image", "label:cat", "year:2024"
// Order examples: "newest", "oldest", "added", "edited", "name", "title", "size", "random"
func (pp *PhotoPrism) GetPhotos(ctx context.Context, count, offset int, query, order string) ([]Photo, error) {
	endpoint := fmt.Sprintf("photos?count=%d&offset=%d", count, offset)
	if query != "" {
		endpoint += "&q=" + url.QueryEscape(query)
	}
	if order != "" {
		endpoint += "&order=" + url.QueryEscape(order)
	}

	result, err := doGetJSON[[]Photo](ctx, pp, endpoint)
	if err != nil {
		return nil, err
	}
	return *result, nil
}

// GetPhotoDetails retrieves the photo including its files
func (pp *PhotoPrism) GetPhotoDetails(ctx context.Context, photoUID string) (*PhotoDetails, error) {
	return doGetJSON[PhotoDetails](ctx, pp, "photos/"+url.PathEscape(photoUID))
}

// GetPhotoThumbnail downloads a thumbnail for a photo
// size can be one of: tile_50, tile_100, left_224, right_224, tile_224, tile_500,
// fit_720, tile_1080, fit_1280, fit_1600, fit_1920, fit_2048, fit_2560, fit_3840, fit_4096, fit_7680
func (pp *PhotoPrism) GetPhotoThumbnail(ctx context.Context, thumbHash, size string) ([]byte, string, error) {
	u := fmt.Sprintf("%s/t/%s/%s/%s", pp.Url, url.PathEscape(thumbHash), url.PathEscape(pp.downloadToken), size)
	return doGetRaw(ctx, pp, u)
}

// ThumbnailSize picks the smallest thumbnail with at least px pixels on the
// short side. Requests above 1280 get fit_1280.
func ThumbnailSize(px int) string {
	switch {
	case px <= 224:
		return "tile_224"
	case px <= 500:
		return "tile_500"
	case px <= 720:
		return "fit_720"
	default:
		return "fit_1280"
	}
}
