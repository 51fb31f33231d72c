package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/makeworld-the-better-one/dither/v2"
	"golang.org/x/image/draw"

	"thermalsub/internal/escpos"
)

const (
	// DefaultMaxDots is the print head width of the reference printer.
	DefaultMaxDots = 190
	// DefaultWidthCorrection stretches images horizontally to cancel the
	// printer's non-square dot pitch.
	DefaultWidthCorrection = 1.5
	// DefaultMinHeight is the shortest canvas ever emitted.
	DefaultMinHeight = 7
	// BandHeight is the number of dots covered by one ESC * pass.
	BandHeight = 8
	threshold  = 128
)

// DitherMode selects how grayscale is reduced to one bit per dot.
type DitherMode string

const (
	DitherFloydSteinberg DitherMode = "floyd-steinberg"
	DitherAtkinson       DitherMode = "atkinson"
	DitherBayer          DitherMode = "bayer"
	DitherThreshold      DitherMode = "threshold"
)

// Options configures a Rasterizer. Zero values fall back to the defaults above.
type Options struct {
	MaxDots         int
	WidthCorrection float64
	MinHeight       int
	Resample        string
	Dither          DitherMode
}

// Rasterizer turns images into image-band fragments.
type Rasterizer struct {
	maxDots    int
	correction float64
	minHeight  int
	filter     imaging.ResampleFilter
	dither     DitherMode
}

// NewRasterizer validates opts and returns a Rasterizer.
func NewRasterizer(opts Options) (*Rasterizer, error) {
	r := &Rasterizer{
		maxDots:    opts.MaxDots,
		correction: opts.WidthCorrection,
		minHeight:  opts.MinHeight,
		dither:     DitherMode(strings.ToLower(strings.TrimSpace(string(opts.Dither)))),
	}
	if r.maxDots == 0 {
		r.maxDots = DefaultMaxDots
	}
	if r.maxDots < BandHeight || r.maxDots > math.MaxUint16 {
		return nil, fmt.Errorf("max dots %d out of range %d..%d", r.maxDots, BandHeight, math.MaxUint16)
	}
	if r.correction == 0 {
		r.correction = DefaultWidthCorrection
	}
	if r.correction < 0 {
		return nil, fmt.Errorf("width correction must be positive, got %v", r.correction)
	}
	if r.minHeight <= 0 {
		r.minHeight = DefaultMinHeight
	}
	filter, err := ParseResample(opts.Resample)
	if err != nil {
		return nil, err
	}
	r.filter = filter
	switch r.dither {
	case "":
		r.dither = DitherFloydSteinberg
	case DitherFloydSteinberg, DitherAtkinson, DitherBayer, DitherThreshold:
	default:
		return nil, fmt.Errorf("unknown dither mode %q", opts.Dither)
	}
	return r, nil
}

// ParseResample maps a configured filter name to an imaging filter.
func ParseResample(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "catmullrom", "bicubic":
		return imaging.CatmullRom, nil
	case "nearest":
		return imaging.NearestNeighbor, nil
	case "linear", "bilinear":
		return imaging.Linear, nil
	case "lanczos":
		return imaging.Lanczos, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter %q", name)
	}
}

// MaxDots reports the band width in dots.
func (r *Rasterizer) MaxDots() int { return r.maxDots }

// FitSize computes the scaled image size. Wide images shrink to maxDots with
// the height scaled by the same ratio; narrow images are only stretched by the
// correction factor and keep their height. Rounding is half-to-even.
func FitSize(width, height, maxDots int, correction float64) (int, int) {
	corrected := float64(width) * correction
	if corrected > float64(maxDots) {
		h := math.RoundToEven(float64(height*maxDots) / corrected)
		return maxDots, max(1, int(h))
	}
	return max(1, int(math.RoundToEven(corrected))), max(1, height)
}

// Rasterize returns one payload per 8-dot band, top to bottom of the source
// image. The first payload carries the entry prefix.
func (r *Rasterizer) Rasterize(img image.Image) [][]byte {
	bounds := img.Bounds()
	w, h := FitSize(bounds.Dx(), bounds.Dy(), r.maxDots, r.correction)

	scaled := imaging.Resize(imaging.Grayscale(img), w, h, r.filter)
	inverted := imaging.Invert(scaled)
	mono := r.binarize(inverted)

	canvas := image.NewGray(image.Rect(0, 0, r.maxDots, max(h, r.minHeight)))
	at := image.Pt(
		int(math.RoundToEven(float64(canvas.Rect.Dx())/2-float64(w)/2)),
		int(math.RoundToEven(float64(canvas.Rect.Dy())/2-float64(h)/2)),
	)
	draw.Draw(canvas, mono.Bounds().Sub(mono.Bounds().Min).Add(at), mono, mono.Bounds().Min, draw.Src)

	// Rotating 270 degrees and mirroring transposes the canvas, so each
	// column of the result holds one head pass worth of stacked dots.
	transposed := imaging.FlipH(imaging.Rotate270(canvas))
	return r.slice(transposed)
}

func (r *Rasterizer) binarize(src *image.NRGBA) *image.Gray {
	out := image.NewGray(src.Bounds())
	if r.dither == DitherThreshold {
		for y := src.Rect.Min.Y; y < src.Rect.Max.Y; y++ {
			for x := src.Rect.Min.X; x < src.Rect.Max.X; x++ {
				if src.NRGBAAt(x, y).R >= threshold {
					out.SetGray(x, y, color.Gray{Y: 0xFF})
				}
			}
		}
		return out
	}

	d := dither.NewDitherer([]color.Color{color.Black, color.White})
	switch r.dither {
	case DitherAtkinson:
		d.Matrix = dither.Atkinson
	case DitherBayer:
		d.Mapper = dither.Bayer(8, 8, 1.0)
	default:
		d.Matrix = dither.FloydSteinberg
	}
	pal := d.DitherPaletted(src)
	for y := pal.Rect.Min.Y; y < pal.Rect.Max.Y; y++ {
		for x := pal.Rect.Min.X; x < pal.Rect.Max.X; x++ {
			if pal.ColorIndexAt(x, y) == 1 {
				out.SetGray(x, y, color.Gray{Y: 0xFF})
			}
		}
	}
	return out
}

func (r *Rasterizer) slice(img *image.NRGBA) [][]byte {
	width := img.Rect.Dx()
	height := img.Rect.Dy()
	header := escpos.ImageHeader(r.maxDots)

	bands := make([][]byte, 0, (width+BandHeight-1)/BandHeight)
	for x0 := 0; x0 < width; x0 += BandHeight {
		band := make([]byte, 0, len(header)+height+6)
		if x0 == 0 {
			band = append(band, escpos.EntryPrefix()...)
		}
		band = append(band, header...)
		for y := 0; y < height; y++ {
			var b byte
			for k := 0; k < BandHeight; k++ {
				x := x0 + k
				if x < width && img.Pix[img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)] >= threshold {
					b |= 1 << (7 - k)
				}
			}
			band = append(band, b)
		}
		band = append(band, escpos.LF)
		bands = append(bands, band)
	}
	return bands
}
