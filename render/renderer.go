package render

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"strings"

	"slidecast/config"
	"slidecast/types"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Options configures a Renderer
type Options struct {
	Width      int
	Height     int
	Style      types.SubtitleStyle
	Subtitles  bool
	Background string
}

// Renderer composes output frames: background, contain-fit visual, subtitle
type Renderer struct {
	width      int
	height     int
	background color.RGBA
	subtitles  bool
	style      types.SubtitleStyle
	textColor  color.RGBA
	boxColor   color.RGBA
	fonts      *faceCache
}

// Prescaled is a still already fitted to the output raster
type Prescaled struct {
	*image.RGBA
	// Rect is the placement on the output canvas
	Rect image.Rectangle
}

// New builds a renderer for a fixed output size
func New(opts Options) (*Renderer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid raster size %dx%d", opts.Width, opts.Height)
	}

	black := color.RGBA{A: 0xff}
	style := opts.Style.WithDefaults()
	r := &Renderer{
		width:      opts.Width,
		height:     opts.Height,
		background: black,
		subtitles:  opts.Subtitles,
		style:      style,
		textColor:  mustColor(style.TextColor, color.RGBA{0xff, 0xff, 0xff, 0xff}),
		boxColor:   mustColor(style.BackgroundColor, black),
	}
	if opts.Background != "" {
		r.background = mustColor(opts.Background, black)
	}

	if opts.Subtitles {
		fonts, err := loadFont(style.FontFamily, style.FontPath)
		if err != nil {
			log.Printf("[Renderer] Warning: %v, using Go regular", err)
			if fonts, err = loadFont("go", ""); err != nil {
				return nil, err
			}
		}
		r.fonts = fonts
	}
	return r, nil
}

// Size returns the output raster size
func (r *Renderer) Size() (int, int) {
	return r.width, r.height
}

// Close releases font faces
func (r *Renderer) Close() {
	if r.fonts != nil {
		r.fonts.Close()
	}
}

// Prescale fits a still once so per-frame drawing is a copy
func (r *Renderer) Prescale(img image.Image) *Prescaled {
	b := img.Bounds()
	rect := FitContain(b.Dx(), b.Dy(), r.width, r.height)
	scaled := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
	return &Prescaled{RGBA: scaled, Rect: rect}
}

// Draw composes one output frame into dst. A nil frame leaves the background.
func (r *Renderer) Draw(dst *image.RGBA, frame image.Image, text string) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(r.background), image.Point{}, draw.Src)

	switch f := frame.(type) {
	case nil:
	case *Prescaled:
		draw.Draw(dst, f.Rect, f.RGBA, f.RGBA.Bounds().Min, draw.Over)
	default:
		b := f.Bounds()
		rect := FitContain(b.Dx(), b.Dy(), r.width, r.height)
		if !rect.Empty() {
			draw.ApproxBiLinear.Scale(dst, rect, f, b, draw.Over, nil)
		}
	}

	if r.subtitles && text != "" {
		r.drawSubtitle(dst, text)
	}
}

func (r *Renderer) fontPixels() float64 {
	short := math.Min(float64(r.width), float64(r.height))
	return r.style.FontSize * short / config.ReferenceShortSide
}

func (r *Renderer) drawSubtitle(dst *image.RGBA, text string) {
	px := r.fontPixels()
	face, err := r.fonts.Face(px)
	if err != nil {
		log.Printf("[Renderer] Warning: %v", err)
		return
	}

	pad := max(int(px*0.4), 2)
	lines := wrapLines(face, text, int(float64(r.width)*0.9)-2*pad)
	if len(lines) == 0 {
		return
	}

	metrics := face.Metrics()
	lineH := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()

	textW := 0
	widths := make([]int, len(lines))
	for i, l := range lines {
		widths[i] = font.MeasureString(face, l).Ceil()
		textW = max(textW, widths[i])
	}
	textH := lineH * len(lines)

	cx := r.width / 2
	cy := int(float64(r.height) * r.style.Position / 100)
	box := image.Rect(cx-textW/2-pad, cy-textH/2-pad, cx+(textW+1)/2+pad, cy+(textH+1)/2+pad)
	box = keepInside(box, image.Rect(0, 0, r.width, r.height))

	if r.style.BackgroundOpacity >= config.OutlineOpacityThreshold {
		mask := &roundedMask{
			rect:   box,
			radius: int(px * 0.3),
			alpha:  uint8(math.Round(r.style.BackgroundOpacity * 0xff)),
		}
		draw.DrawMask(dst, box, image.NewUniform(r.boxColor), image.Point{}, mask, box.Min, draw.Over)
	}
	outline := r.style.BackgroundOpacity < config.OutlineOpacityThreshold

	for i, l := range lines {
		x := cx - widths[i]/2
		y := box.Min.Y + pad + ascent + i*lineH
		if outline {
			drawOutlined(dst, face, l, x, y, px)
		}
		d := &font.Drawer{Dst: dst, Src: image.NewUniform(r.textColor), Face: face, Dot: fixed.P(x, y)}
		d.DrawString(l)
	}
}

// drawOutlined draws a drop shadow and an eight-way dark stroke under the text
func drawOutlined(dst *image.RGBA, face font.Face, s string, x, y int, px float64) {
	stroke := max(int(px/16), 1)
	shadow := max(int(px/20), 1) + stroke

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(color.RGBA{A: 160}), Face: face}
	d.Dot = fixed.P(x+shadow, y+shadow)
	d.DrawString(s)

	d.Src = image.NewUniform(color.RGBA{A: 0xff})
	for _, off := range [8][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}} {
		d.Dot = fixed.P(x+off[0]*stroke, y+off[1]*stroke)
		d.DrawString(s)
	}
}

func wrapLines(face font.Face, text string, maxWidth int) []string {
	var lines []string
	cur := ""
	for _, w := range strings.Fields(text) {
		candidate := w
		if cur != "" {
			candidate = cur + " " + w
		}
		if cur != "" && font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur = candidate
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// keepInside shifts r so it lies within bounds where possible
func keepInside(r, bounds image.Rectangle) image.Rectangle {
	if r.Min.Y < bounds.Min.Y {
		r = r.Add(image.Pt(0, bounds.Min.Y-r.Min.Y))
	}
	if r.Max.Y > bounds.Max.Y {
		r = r.Add(image.Pt(0, bounds.Max.Y-r.Max.Y))
	}
	return r.Intersect(bounds)
}

type roundedMask struct {
	rect   image.Rectangle
	radius int
	alpha  uint8
}

func (m *roundedMask) ColorModel() color.Model { return color.AlphaModel }

func (m *roundedMask) Bounds() image.Rectangle { return m.rect }

func (m *roundedMask) At(x, y int) color.Color {
	if !image.Pt(x, y).In(m.rect) {
		return color.Alpha{}
	}
	rad := min(m.radius, m.rect.Dx()/2, m.rect.Dy()/2)
	cx, cy := x, y
	if x < m.rect.Min.X+rad {
		cx = m.rect.Min.X + rad
	} else if x >= m.rect.Max.X-rad {
		cx = m.rect.Max.X - rad - 1
	}
	if y < m.rect.Min.Y+rad {
		cy = m.rect.Min.Y + rad
	} else if y >= m.rect.Max.Y-rad {
		cy = m.rect.Max.Y - rad - 1
	}
	dx, dy := x-cx, y-cy
	if dx*dx+dy*dy > rad*rad {
		return color.Alpha{}
	}
	return color.Alpha{A: m.alpha}
}
