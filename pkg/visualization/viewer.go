// Package visualization renders label maps and distance distributions for
// visual inspection of an analysis pass.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"maskstats/internal/models"
)

// goldenAngle spreads successive label hues around the colour wheel
const goldenAngle = 137.508

// markerColor draws dependent-object centroids
var markerColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Viewer draws a reference label map with dependent centroids on top
type Viewer struct {
	labels    *models.LabelMap
	centroids []models.Centroid

	// markerRadius is the half-width of each centroid marker in pixels
	markerRadius int
}

// NewViewer creates a viewer for one label map and its dependent centroids
func NewViewer(labels *models.LabelMap, centroids []models.Centroid) *Viewer {
	return &Viewer{
		labels:       labels,
		centroids:    centroids,
		markerRadius: 1,
	}
}

// LabelColor returns the deterministic display colour of a 1-based label.
// Label 0 is black.
func LabelColor(label int32) color.NRGBA {
	if label <= 0 {
		return color.NRGBA{A: 255}
	}
	hue := math.Mod(float64(label)*goldenAngle, 360)
	r, g, b := colorful.Hsv(hue, 0.65, 0.95).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Render draws the label map and centroid markers
func (v *Viewer) Render() (image.Image, error) {
	if v.labels == nil || v.labels.Width == 0 || v.labels.Height == 0 {
		return nil, fmt.Errorf("label map is empty")
	}

	img := image.NewNRGBA(image.Rect(0, 0, v.labels.Width, v.labels.Height))
	for y := 0; y < v.labels.Height; y++ {
		for x := 0; x < v.labels.Width; x++ {
			img.SetNRGBA(x, y, LabelColor(v.labels.Labels[y*v.labels.Width+x]))
		}
	}

	for _, c := range v.centroids {
		cx, cy := int(c.Col), int(c.Row)
		for dy := -v.markerRadius; dy <= v.markerRadius; dy++ {
			for dx := -v.markerRadius; dx <= v.markerRadius; dx++ {
				p := image.Pt(cx+dx, cy+dy)
				if p.In(img.Rect) {
					img.SetNRGBA(p.X, p.Y, markerColor)
				}
			}
		}
	}
	return img, nil
}

// SaveOverlay renders and writes the overlay. The format follows the file
// extension; scale > 1 enlarges the image with nearest-neighbour sampling so
// that labels stay crisp.
func (v *Viewer) SaveOverlay(filename string, scale int) error {
	img, err := v.Render()
	if err != nil {
		return err
	}
	if scale > 1 {
		b := img.Bounds()
		img = imaging.Resize(img, b.Dx()*scale, b.Dy()*scale, imaging.NearestNeighbor)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return imaging.Save(img, filename)
}

// SaveNNDHistogram plots the distribution of nearest-neighbour distances
func SaveNNDHistogram(distances []float64, unit, filename string, bins int) error {
	if len(distances) == 0 {
		return fmt.Errorf("no distances to plot")
	}
	if bins <= 0 {
		bins = 20
	}

	p := plot.New()
	p.Title.Text = "Nearest-neighbour distance"
	p.X.Label.Text = fmt.Sprintf("distance (%s)", unit)
	p.Y.Label.Text = "objects"

	h, err := plotter.NewHist(plotter.Values(distances), bins)
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	h.FillColor = color.NRGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(h)

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}
