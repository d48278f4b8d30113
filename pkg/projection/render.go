package projection

import (
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gopkg.in/go-playground/colors.v1"

	"covertype/pkg/core"
)

// DefaultPalette is a viridis ramp followed by a few high contrast colors for
// datasets with many classes.
var DefaultPalette = []string{
	"#440154", "#443983", "#31688e", "#21918c", "#35b779", "#90d743", "#fde725",
	"#e6550d", "#756bb1", "#636363",
}

// RenderOptions controls the look of a scatter plot. Zero values take defaults.
type RenderOptions struct {
	Width, Height vg.Length
	Palette       []string // hex colors, cycled per label
	Alpha         float64  // marker opacity in (0, 1]
	// LabelName maps a label code to its legend entry. nil => decimal code.
	LabelName func(int) string
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.Width <= 0 {
		o.Width = 6 * vg.Inch
	}
	if o.Height <= 0 {
		o.Height = 6 * vg.Inch
	}
	if len(o.Palette) == 0 {
		o.Palette = DefaultPalette
	}
	if o.Alpha <= 0 || o.Alpha > 1 {
		o.Alpha = 0.7
	}
	if o.LabelName == nil {
		o.LabelName = strconv.Itoa
	}
	return o
}

// ParsePalette converts hex strings such as "#21918c" to colors with the
// given opacity.
func ParsePalette(hexes []string, alpha float64) ([]color.Color, error) {
	out := make([]color.Color, len(hexes))
	for i, h := range hexes {
		hex, err := colors.ParseHEX(h)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidParameter, "render: palette color %q: %v", h, err)
		}
		rgba := hex.ToRGBA()
		out[i] = color.NRGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: uint8(math.Round(alpha * 255))}
	}
	return out, nil
}

// Render draws one scatter series per distinct label (ascending), with a
// legend, title and axis labels, and saves the figure to path. The image
// format follows the file extension.
func Render(embedding *core.Matrix, labels []int, title, path string, opts RenderOptions) error {
	if embedding == nil || embedding.R == 0 {
		return errors.Wrap(ErrInsufficientSamples, "render: empty embedding")
	}
	if embedding.C != 2 {
		return errors.Wrapf(ErrInvalidParameter, "render: embedding has %d columns, want 2", embedding.C)
	}
	if len(labels) != embedding.R {
		return errors.Wrapf(ErrInvalidParameter, "render: %d labels for %d points", len(labels), embedding.R)
	}
	opts = opts.withDefaults()
	palette, err := ParsePalette(opts.Palette, opts.Alpha)
	if err != nil {
		return err
	}

	groups := make(map[int]plotter.XYs)
	for i, l := range labels {
		row := embedding.Row(i)
		groups[l] = append(groups[l], plotter.XY{X: row[0], Y: row[1]})
	}
	order := make([]int, 0, len(groups))
	for l := range groups {
		order = append(order, l)
	}
	sort.Ints(order)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Component 1"
	p.Y.Label.Text = "Component 2"
	p.Legend.Top = true

	for k, l := range order {
		s, err := plotter.NewScatter(groups[l])
		if err != nil {
			return errors.Wrapf(err, "render: label %d", l)
		}
		s.GlyphStyle.Color = palette[k%len(palette)]
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
		p.Legend.Add(opts.LabelName(l), s)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "render: create output directory")
		}
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return errors.Wrapf(err, "render: save %s", path)
	}
	return nil
}
