package photoprism

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kozaktomas/photo-curator/internal/constants"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/logging"
)

// Library exposes a PhotoPrism instance as a library.Library
type Library struct {
	pp       *PhotoPrism
	logger   *slog.Logger
	pageSize int

	// thumbnail hashes by photo UID, filled by listings
	hashes sync.Map
}

// NewLibrary wraps an authenticated client
func NewLibrary(pp *PhotoPrism, logger *slog.Logger) *Library {
	return &Library{pp: pp, logger: logging.OrDefault(logger), pageSize: constants.DefaultPageSize}
}

var _ library.Library = (*Library)(nil)

// ListAssets returns image assets newest first, paging through the search API.
// A limit of 0 lists the whole library.
func (l *Library) ListAssets(ctx context.Context, filter library.Filter) ([]library.Asset, error) {
	var assets []library.Asset
	for offset := 0; filter.Limit <= 0 || len(assets) < filter.Limit; {
		count := l.pageSize
		if filter.Limit > 0 {
			count = min(count, filter.Limit-len(assets))
		}
		photos, err := l.pp.GetPhotos(ctx, count, offset, "type:image", "newest")
		if err != nil {
			return nil, fmt.Errorf("list photos at offset %d: %w", offset, err)
		}
		for _, p := range photos {
			assets = append(assets, l.toAsset(p))
		}
		if len(photos) < count {
			break
		}
		offset += len(photos)
	}
	return assets, nil
}

// ListMoments returns PhotoPrism moments with their photos. Limit caps the
// total number of assets across all moments.
func (l *Library) ListMoments(ctx context.Context, filter library.Filter) ([]library.Moment, error) {
	albums, err := l.momentAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("list moments: %w", err)
	}

	total := 0
	moments := make([]library.Moment, 0, len(albums))
	for _, album := range albums {
		if filter.Limit > 0 && total >= filter.Limit {
			break
		}
		photos, err := l.albumPhotos(ctx, album.UID)
		if err != nil {
			return nil, fmt.Errorf("list photos of moment %s: %w", album.UID, err)
		}

		m := library.Moment{ID: album.UID, Title: album.Title}
		for _, p := range photos {
			if p.Type == "video" {
				continue
			}
			if filter.Limit > 0 && total >= filter.Limit {
				break
			}
			m.Assets = append(m.Assets, l.toAsset(p))
			total++
		}
		l.logger.Debug("listed moment", "moment", album.UID, "title", album.Title, "assets", len(m.Assets))
		moments = append(moments, m)
	}
	return moments, nil
}

func (l *Library) momentAlbums(ctx context.Context) ([]Album, error) {
	count := min(l.pageSize, constants.DefaultMomentCount)
	var all []Album
	for offset := 0; ; {
		albums, err := l.pp.GetAlbums(ctx, count, offset, "", "", AlbumTypeMoment)
		if err != nil {
			return nil, err
		}
		all = append(all, albums...)
		if len(albums) < count {
			return all, nil
		}
		offset += len(albums)
	}
}

func (l *Library) albumPhotos(ctx context.Context, albumUID string) ([]Photo, error) {
	var all []Photo
	for offset := 0; ; {
		photos, err := l.pp.GetAlbumPhotos(ctx, albumUID, l.pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, photos...)
		if len(photos) < l.pageSize {
			return all, nil
		}
		offset += len(photos)
	}
}

// FetchPixels downloads the smallest thumbnail covering size
func (l *Library) FetchPixels(ctx context.Context, assetID string, size int) ([]byte, error) {
	hash, err := l.thumbHash(ctx, assetID)
	if err != nil {
		return nil, err
	}
	data, _, err := l.pp.GetPhotoThumbnail(ctx, hash, ThumbnailSize(size))
	if IsNotFoundError(err) {
		// the listed hash went stale, the primary file changed since
		l.hashes.Delete(assetID)
		if hash, err = l.thumbHash(ctx, assetID); err != nil {
			return nil, err
		}
		data, _, err = l.pp.GetPhotoThumbnail(ctx, hash, ThumbnailSize(size))
	}
	if err != nil {
		return nil, fmt.Errorf("fetch thumbnail of %s: %w", assetID, err)
	}
	return data, nil
}

func (l *Library) thumbHash(ctx context.Context, assetID string) (string, error) {
	if h, ok := l.hashes.Load(assetID); ok {
		return h.(string), nil
	}

	details, err := l.pp.GetPhotoDetails(ctx, assetID)
	if err != nil {
		return "", fmt.Errorf("get details of %s: %w", assetID, err)
	}
	hash := details.PrimaryHash()
	if hash == "" {
		return "", errors.New("could not find file hash for photo " + assetID)
	}
	l.hashes.Store(assetID, hash)
	return hash, nil
}

func (l *Library) toAsset(p Photo) library.Asset {
	a := library.Asset{
		ID:      p.UID,
		Title:   p.Title,
		TakenAt: parseTakenAt(p),
		Hash:    p.Hash,
	}
	// PhotoPrism reports unknown positions as 0,0
	if p.Lat != 0 || p.Lng != 0 {
		a.Location = &library.Location{Lat: p.Lat, Lng: p.Lng}
	}
	if p.Hash != "" {
		l.hashes.Store(p.UID, p.Hash)
	}
	return a
}

func parseTakenAt(p Photo) time.Time {
	for _, s := range []string{p.TakenAt, p.TakenAtLocal} {
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
