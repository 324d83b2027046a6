// Package maskio loads segmentation mask stacks from disk.
//
// Supported inputs:
//   - .npy and .npz NumPy files holding either an (N, H, W) stack of per-object
//     masks or an (H, W) label image
//   - raster label images (PNG, JPEG, GIF, TIFF, BMP) where each distinct
//     nonzero value is one object
//   - a directory of raster images, one binary mask per file in name order
package maskio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"maskstats/internal/models"
)

// ErrUnsupportedFormat is returned for files the loader cannot decode
var ErrUnsupportedFormat = errors.New("unsupported mask format")

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".tif": true, ".tiff": true, ".bmp": true,
}

// Load reads a mask stack from path, dispatching on file extension
func Load(path string) (*models.MaskStack, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat mask source: %w", err)
	}
	if info.IsDir() {
		return loadDir(path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); {
	case ext == ".npz":
		arr, err := readNPZ(path)
		if err != nil {
			return nil, err
		}
		return arrayToStack(arr)
	case ext == ".npy":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open mask file: %w", err)
		}
		defer f.Close()
		arr, err := readNPY(f, info.Size())
		if err != nil {
			return nil, err
		}
		return arrayToStack(arr)
	case imageExts[ext]:
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to decode label image: %w", err)
		}
		return labelImageToStack(img)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

func arrayToStack(arr *npyArray) (*models.MaskStack, error) {
	if len(arr.shape) >= 2 {
		if _, err := elementCount(arr.shape[len(arr.shape)-2:]); err != nil {
			return nil, err
		}
	}
	switch len(arr.shape) {
	case 2:
		return models.StackFromLabels(arr.shape[0], arr.shape[1], arr.data)
	case 3:
		n, h, w := arr.shape[0], arr.shape[1], arr.shape[2]
		if n > 0 && h*w == 0 {
			return nil, fmt.Errorf("%d masks of zero extent: %w", n, ErrUnsupportedFormat)
		}
		if len(arr.data) != n*h*w {
			return nil, fmt.Errorf("array holds %d values, shape %v needs %d: %w",
				len(arr.data), arr.shape, n*h*w, ErrUnsupportedFormat)
		}
		masks := make([]models.Mask, n)
		for i := range masks {
			pix := make([]uint8, h*w)
			for p, v := range arr.data[i*h*w : (i+1)*h*w] {
				if v != 0 {
					pix[p] = 1
				}
			}
			masks[i] = models.Mask{Pix: pix}
		}
		return models.NewMaskStack(h, w, masks)
	default:
		return nil, fmt.Errorf("array of rank %d: %w", len(arr.shape), ErrUnsupportedFormat)
	}
}

// labelImageToStack treats gray levels as labels directly. Colour images map
// each distinct non-black colour to one label, ordered by packed RGBA value.
func labelImageToStack(img image.Image) (*models.MaskStack, error) {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	labels := make([]int64, h*w)

	switch g := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				labels[y*w+x] = int64(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				labels[y*w+x] = int64(g.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		packed := make([]int64, h*w)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
				if c.A == 0 || (c.R|c.G|c.B) == 0 {
					continue
				}
				packed[y*w+x] = int64(c.R)<<32 | int64(c.G)<<16 | int64(c.B)
			}
		}
		labels = packed
	}

	return models.StackFromLabels(h, w, labels)
}

// loadDir reads one binary mask per image file, sorted by file name
func loadDir(dir string) (*models.MaskStack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mask directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var (
		h, w  int
		masks = make([]models.Mask, 0, len(names))
	)
	for i, name := range names {
		img, err := imaging.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to decode mask %s: %w", name, err)
		}
		gray := imaging.Grayscale(img)
		bw, bh := gray.Bounds().Dx(), gray.Bounds().Dy()
		if i == 0 {
			h, w = bh, bw
		} else if bh != h || bw != w {
			return nil, fmt.Errorf("mask %s is %dx%d, want %dx%d: %w",
				name, bh, bw, h, w, models.ErrShapeMismatch)
		}

		pix := make([]uint8, h*w)
		for p := range pix {
			// NRGBA layout: grayscale keeps R == G == B
			if gray.Pix[p*4] != 0 && gray.Pix[p*4+3] != 0 {
				pix[p] = 1
			}
		}
		masks = append(masks, models.Mask{Pix: pix})
	}

	return models.NewMaskStack(h, w, masks)
}
