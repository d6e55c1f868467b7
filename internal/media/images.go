// Package media holds the local, always-available producers: gradient
// images, synthesized narration audio and placeholder video assembly. These
// back the terminal tiers of the generation chains, so they must never
// fail for external reasons.
package media

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image/color"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	log "github.com/sirupsen/logrus"
)

// Standard output sizes for course assets.
const (
	BackgroundWidth  = 1920
	BackgroundHeight = 1080
	ThumbnailWidth   = 1280
	ThumbnailHeight  = 720
)

// Renderer draws flat gradient images with optional TTF text overlay. With
// no font configured it falls back to gg's built-in face.
type Renderer struct {
	titleFace font.Face
	smallFace font.Face
}

// NewRenderer loads the font at fontPath when given. A missing or broken
// font degrades to the default face rather than failing.
func NewRenderer(fontPath string) *Renderer {
	r := &Renderer{}
	if fontPath == "" {
		return r
	}
	title, err := loadFontFace(fontPath, 84)
	if err != nil {
		log.Warnf("Could not load font %s, using built-in face: %v", fontPath, err)
		return r
	}
	small, err := loadFontFace(fontPath, 42)
	if err != nil {
		log.Warnf("Could not load font %s at small size, using built-in face: %v", fontPath, err)
		return r
	}
	r.titleFace = title
	r.smallFace = small
	return r
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}

// Background renders a vertical gradient slide with the lesson title. The
// palette is derived from the topic so every lesson of a course shares a
// look while courses differ.
func (r *Renderer) Background(topic, lessonTitle string) ([]byte, error) {
	return r.render(BackgroundWidth, BackgroundHeight, topic, lessonTitle, "")
}

// Thumbnail renders the course card image.
func (r *Renderer) Thumbnail(topic string, lessonCount int) ([]byte, error) {
	badge := fmt.Sprintf("%d lessons", lessonCount)
	return r.render(ThumbnailWidth, ThumbnailHeight, topic, topic, badge)
}

func (r *Renderer) render(width, height int, topic, title, badge string) ([]byte, error) {
	top, bottom := paletteFor(topic)
	dc := gg.NewContext(width, height)

	grad := gg.NewLinearGradient(0, 0, 0, float64(height))
	grad.AddColorStop(0, top)
	grad.AddColorStop(1, bottom)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	if r.titleFace != nil {
		dc.SetFontFace(r.titleFace)
	}
	dc.SetColor(color.White)
	cx, cy := float64(width)/2, float64(height)/2
	dc.DrawStringWrapped(title, cx, cy, 0.5, 0.5, float64(width)*0.8, 1.4, gg.AlignCenter)

	if badge != "" {
		if r.smallFace != nil {
			dc.SetFontFace(r.smallFace)
		}
		dc.SetRGBA(1, 1, 1, 0.85)
		dc.DrawStringAnchored(badge, cx, float64(height)*0.85, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// paletteFor maps a topic to a stable gradient pair.
func paletteFor(topic string) (color.NRGBA, color.NRGBA) {
	palettes := [][2]color.NRGBA{
		{{R: 0x1E, G: 0x3A, B: 0x5F, A: 0xFF}, {R: 0x0B, G: 0x13, B: 0x29, A: 0xFF}},
		{{R: 0x4A, G: 0x1E, B: 0x5F, A: 0xFF}, {R: 0x1A, G: 0x0B, B: 0x29, A: 0xFF}},
		{{R: 0x1E, G: 0x5F, B: 0x4A, A: 0xFF}, {R: 0x0B, G: 0x29, B: 0x1A, A: 0xFF}},
		{{R: 0x5F, G: 0x3A, B: 0x1E, A: 0xFF}, {R: 0x29, G: 0x13, B: 0x0B, A: 0xFF}},
		{{R: 0x5F, G: 0x1E, B: 0x2E, A: 0xFF}, {R: 0x29, G: 0x0B, B: 0x13, A: 0xFF}},
	}
	h := fnv.New32a()
	h.Write([]byte(topic))
	p := palettes[int(h.Sum32())%len(palettes)]
	return p[0], p[1]
}
