package script

import (
	"bytes"
	"cmp"
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"thermalsub/internal/escpos"
	"thermalsub/internal/logging"
	"thermalsub/internal/raster"
	"thermalsub/internal/subtitles"
	"thermalsub/internal/timeline"
)

// DefaultPageFeedLines is the number of blank lines a [pagefeed] line emits.
const DefaultPageFeedLines = 8

// PageFeedLine is the physical line that requests a manual form feed.
const PageFeedLine = "[pagefeed]"

var imageDirective = regexp.MustCompile(`^[ \t]*\[img=(.*)\][ \t]*$`)

// Options configures a Builder.
type Options struct {
	Encoder       *escpos.Encoder
	Rasterizer    *raster.Rasterizer
	Loader        raster.Loader
	BaseDir       string
	PageFeedLines int
	Logger        *slog.Logger
}

// Builder converts subtitle records into fragments.
type Builder struct {
	encoder       *escpos.Encoder
	rasterizer    *raster.Rasterizer
	loader        raster.Loader
	baseDir       string
	pageFeedLines int
	logger        *slog.Logger

	images map[string][][]byte
}

// Stats summarizes a build.
type Stats struct {
	Entries   int
	Fragments int
	Images    int
	Skipped   int
}

// NewBuilder returns a Builder. Missing collaborators fall back to defaults: a
// failing-charset encoder, a default rasterizer and the file loader.
func NewBuilder(opts Options) (*Builder, error) {
	b := &Builder{
		encoder:       opts.Encoder,
		rasterizer:    opts.Rasterizer,
		loader:        opts.Loader,
		baseDir:       opts.BaseDir,
		pageFeedLines: opts.PageFeedLines,
		logger:        logging.NewComponentLogger(opts.Logger, "script"),
		images:        make(map[string][][]byte),
	}
	if b.encoder == nil {
		b.encoder = escpos.NewEncoder(escpos.CharsetFail)
	}
	if b.rasterizer == nil {
		r, err := raster.NewRasterizer(raster.Options{})
		if err != nil {
			return nil, err
		}
		b.rasterizer = r
	}
	if b.loader == nil {
		b.loader = raster.FileLoader{}
	}
	if b.pageFeedLines < 0 {
		b.pageFeedLines = 0
	} else if opts.PageFeedLines == 0 {
		b.pageFeedLines = DefaultPageFeedLines
	}
	return b, nil
}

// Build lays out records in start-time order. The records slice is not
// modified; it is re-sorted on a copy because input order is not trusted.
func (b *Builder) Build(ctx context.Context, records []subtitles.Record) ([]timeline.Fragment, Stats, error) {
	ordered := slices.Clone(records)
	slices.SortStableFunc(ordered, func(x, y subtitles.Record) int {
		return cmp.Compare(x.Start, y.Start)
	})

	var (
		frags []timeline.Fragment
		stats Stats
	)
	for _, rec := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		before := len(frags)
		var err error
		frags, err = b.appendEntry(frags, rec, &stats)
		if err != nil {
			return nil, stats, err
		}
		stats.Entries++
		b.logger.Debug("laid out subtitle entry",
			logging.Int("index", rec.Index),
			logging.String("start", subtitles.FormatTimestamp(rec.Start)),
			logging.Int("fragments", len(frags)-before),
		)
	}
	stats.Fragments = len(frags)
	return frags, stats, nil
}

func (b *Builder) appendEntry(frags []timeline.Fragment, rec subtitles.Record, stats *Stats) ([]timeline.Fragment, error) {
	at := rec.Start
	first := true
	for _, line := range strings.Split(rec.Text, "\n") {
		line = strings.Trim(line, "\r")

		if m := imageDirective.FindStringSubmatch(line); m != nil {
			bands, err := b.image(m[1])
			if err != nil {
				return nil, err
			}
			for _, band := range bands {
				frags = append(frags, timeline.Fragment{Time: at, Data: bytes.Clone(band)})
			}
			stats.Images++
			first = false
			continue
		}

		if line == PageFeedLine {
			for range b.pageFeedLines {
				frags = append(frags, timeline.Blank(at))
			}
			continue
		}

		enc, err := b.encoder.EncodeLine(line, first)
		if err != nil {
			return nil, err
		}
		if enc.Skipped {
			stats.Skipped++
			logging.WarnWithContext(b.logger, "dropped line outside printer charset", "line_skipped",
				logging.Int("index", rec.Index),
				logging.String("line", line),
				logging.String(logging.FieldErrorHint, "set render.charset_policy to transliterate or edit the script"),
				logging.String(logging.FieldImpact, "line will not be printed"),
			)
			continue
		}
		frags = append(frags, timeline.Fragment{Time: at, Data: enc.Data})
		for range enc.Fillers {
			frags = append(frags, timeline.Fragment{Time: at, Data: []byte{}})
		}
		first = false
	}
	return frags, nil
}

// image rasterizes the referenced image once per build and path.
func (b *Builder) image(ref string) ([][]byte, error) {
	path := strings.TrimSpace(ref)
	if !filepath.IsAbs(path) && b.baseDir != "" {
		path = filepath.Join(b.baseDir, path)
	}
	if bands, ok := b.images[path]; ok {
		return bands, nil
	}
	img, err := b.loader.Load(path)
	if err != nil {
		return nil, err
	}
	bands := b.rasterizer.Rasterize(img)
	b.images[path] = bands
	b.logger.Debug("rasterized image",
		logging.String("path", path),
		logging.Int("width", img.Bounds().Dx()),
		logging.Int("height", img.Bounds().Dy()),
		logging.Int("bands", len(bands)),
	)
	return bands, nil
}
