package fingerprint

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/bits"
	"slices"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// hashBits is the length of a combined pHash+dHash print.
const hashBits = 128

// HashResult contains computed perceptual hashes for an image.
type HashResult struct {
	PHash     string `json:"phash"` // 64-bit perceptual hash as hex string
	DHash     string `json:"dhash"` // 64-bit difference hash as hex string
	PHashBits uint64 `json:"-"`     // Raw pHash for comparison
	DHashBits uint64 `json:"-"`     // Raw dHash for comparison
}

// ComputeHashes computes both pHash and dHash for an image.
func ComputeHashes(imageData []byte) (*HashResult, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return hashImage(img), nil
}

func hashImage(img image.Image) *HashResult {
	pHash := computePHash(img)
	dHash := computeDHash(img)

	return &HashResult{
		PHash:     fmt.Sprintf("%016x", pHash),
		DHash:     fmt.Sprintf("%016x", dHash),
		PHashBits: pHash,
		DHashBits: dHash,
	}
}

// HammingDistance computes the Hamming distance between two 64-bit hashes.
func HammingDistance(hash1, hash2 uint64) int {
	return bits.OnesCount64(hash1 ^ hash2)
}

// HashExtractor computes prints locally from perceptual hashes, without
// any external service. The print vector holds the 64 pHash bits followed
// by the 64 dHash bits as 0/1 values.
type HashExtractor struct{}

// NewHashExtractor returns a local hash-based extractor.
func NewHashExtractor() *HashExtractor {
	return &HashExtractor{}
}

// Extract implements Extractor.
func (e *HashExtractor) Extract(ctx context.Context, imageData []byte) (Print, error) {
	if err := ctx.Err(); err != nil {
		return Print{}, err
	}
	h, err := ComputeHashes(imageData)
	if err != nil {
		return Print{}, err
	}
	return Print{Vector: hashVector(h), Confidence: 1, Model: e.Name()}, nil
}

// Distance is the Hamming distance between two hash prints, normalized to [0, 1].
func (e *HashExtractor) Distance(a, b Print) (float64, error) {
	if len(a.Vector) != hashBits || len(b.Vector) != hashBits {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a.Vector), len(b.Vector))
	}
	pa, da := vectorHash(a.Vector)
	pb, db := vectorHash(b.Vector)
	return float64(HammingDistance(pa, pb)+HammingDistance(da, db)) / hashBits, nil
}

// Name identifies the prints produced by this extractor.
func (e *HashExtractor) Name() string {
	return "phash+dhash"
}

func hashVector(h *HashResult) []float32 {
	vec := make([]float32, hashBits)
	for i := range 64 {
		if h.PHashBits&(1<<(63-i)) != 0 {
			vec[i] = 1
		}
		if h.DHashBits&(1<<(63-i)) != 0 {
			vec[64+i] = 1
		}
	}
	return vec
}

func vectorHash(vec []float32) (pHash, dHash uint64) {
	for i := range 64 {
		if vec[i] >= 0.5 {
			pHash |= 1 << (63 - i)
		}
		if vec[64+i] >= 0.5 {
			dHash |= 1 << (63 - i)
		}
	}
	return pHash, dHash
}

const (
	dctSize  = 32
	lowFreqs = 8
)

// dctBasis holds the DCT-II cosine terms for the lowest frequencies only.
var dctBasis = func() (basis [lowFreqs][dctSize]float64) {
	for u := range lowFreqs {
		for x := range dctSize {
			basis[u][x] = math.Cos(math.Pi * float64(u) * (2*float64(x) + 1) / (2 * dctSize))
		}
	}
	return basis
}()

// computePHash computes a 64-bit perceptual hash from the 8x8 low-frequency
// block of a 32x32 DCT.
func computePHash(img image.Image) uint64 {
	px := grayscale(img, dctSize, dctSize)

	// The transform is separable: rows first, then columns of the row result.
	var rows [dctSize][lowFreqs]float64
	for y := range dctSize {
		line := px[y*dctSize : (y+1)*dctSize]
		for u := range lowFreqs {
			var sum float64
			for x, p := range line {
				sum += p * dctBasis[u][x]
			}
			rows[y][u] = sum
		}
	}

	coeffs := make([]float64, 0, lowFreqs*lowFreqs)
	for v := range lowFreqs {
		for u := range lowFreqs {
			var sum float64
			for y := range dctSize {
				sum += rows[y][u] * dctBasis[v][y]
			}
			coeffs = append(coeffs, sum)
		}
	}

	// The DC term would dominate the median.
	median := computeMedian(coeffs[1:])

	var hash uint64
	for i, c := range coeffs {
		if c > median {
			hash |= 1 << (63 - i)
		}
	}
	return hash
}

// computeDHash computes a 64-bit difference hash over a 9x8 thumbnail,
// one bit per horizontally adjacent pixel pair.
func computeDHash(img image.Image) uint64 {
	const w, h = 9, 8
	px := grayscale(img, w, h)

	var hash uint64
	for y := range h {
		for x := range w - 1 {
			hash <<= 1
			if px[y*w+x] > px[y*w+x+1] {
				hash |= 1
			}
		}
	}
	return hash
}

// grayscale scales img to w x h and returns its luma row by row.
func grayscale(img image.Image, w, h int) []float64 {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make([]float64, len(dst.Pix))
	for i, p := range dst.Pix {
		out[i] = float64(p)
	}
	return out
}

func computeMedian(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
