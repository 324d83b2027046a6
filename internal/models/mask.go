package models

import (
	"errors"
	"fmt"
	"sort"
)

// ErrShapeMismatch is returned when masks that must share a 2D extent do not.
var ErrShapeMismatch = errors.New("mask shape mismatch")

// Mask represents a single segmented object
type Mask struct {
	// Pix holds Height*Width pixels in row-major order; any nonzero value
	// marks a foreground pixel
	Pix []uint8
}

// Area returns the number of foreground pixels in the mask
func (m Mask) Area() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// MaskStack is an ordered collection of same-shaped masks, one per object.
// The position of a mask in Masks identifies the object within one analysis
// call only.
type MaskStack struct {
	// Height and Width are the 2D extent shared by every mask
	Height int
	Width  int

	// Masks holds the per-object masks
	Masks []Mask
}

// NewMaskStack creates a stack and checks that every mask matches the extent
func NewMaskStack(height, width int, masks []Mask) (*MaskStack, error) {
	if height < 0 || width < 0 {
		return nil, fmt.Errorf("invalid extent %dx%d", height, width)
	}
	s := &MaskStack{Height: height, Width: width, Masks: masks}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that every mask covers exactly Height*Width pixels. A nil
// stack is valid.
func (s *MaskStack) Validate() error {
	if s == nil {
		return nil
	}
	for i, m := range s.Masks {
		if len(m.Pix) != s.Height*s.Width {
			return fmt.Errorf("mask %d has %d pixels, want %dx%d: %w",
				i, len(m.Pix), s.Height, s.Width, ErrShapeMismatch)
		}
	}
	return nil
}

// StackFromLabels expands a dense label image into a mask stack. Pixel value
// 0 is background; every distinct positive label becomes one mask, ordered by
// ascending label value.
func StackFromLabels(height, width int, labels []int64) (*MaskStack, error) {
	if len(labels) != height*width {
		return nil, fmt.Errorf("label image has %d pixels, want %dx%d: %w",
			len(labels), height, width, ErrShapeMismatch)
	}

	seen := make(map[int64]int)
	var ids []int64
	for _, l := range labels {
		if l <= 0 {
			continue
		}
		if _, ok := seen[l]; !ok {
			seen[l] = 0
			ids = append(ids, l)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	masks := make([]Mask, len(ids))
	for i, id := range ids {
		seen[id] = i
		masks[i] = Mask{Pix: make([]uint8, height*width)}
	}
	for p, l := range labels {
		if l > 0 {
			masks[seen[l]].Pix[p] = 1
		}
	}

	return &MaskStack{Height: height, Width: width, Masks: masks}, nil
}

// Len returns the number of masks in the stack; a nil stack has none
func (s *MaskStack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Masks)
}

// SameExtent reports whether two stacks share a 2D extent. Stacks without
// any masks and without an extent are compatible with anything.
func (s *MaskStack) SameExtent(o *MaskStack) bool {
	if s.isBlank() || o.isBlank() {
		return true
	}
	return s.Height == o.Height && s.Width == o.Width
}

func (s *MaskStack) isBlank() bool {
	return s == nil || (len(s.Masks) == 0 && s.Height*s.Width == 0)
}

// Centroid is the pixel-weighted centre of one object's foreground
type Centroid struct {
	// Row and Col are pixel coordinates
	Row, Col float64

	// Index is the position of the source mask within its stack
	Index int
}

// LabelMap is a dense raster in which each foreground pixel holds the 1-based
// index of the reference object covering it, and background holds 0
type LabelMap struct {
	Height, Width int
	Labels        []int32
}

// At returns the label at (row, col) and false when the coordinate is out of
// bounds
func (l *LabelMap) At(row, col int) (int32, bool) {
	if row < 0 || col < 0 || row >= l.Height || col >= l.Width {
		return 0, false
	}
	return l.Labels[row*l.Width+col], true
}

// MatchedPair links a dependent object to the reference object containing its
// centroid
type MatchedPair struct {
	DependentIndex int     `yaml:"dependent_index"`
	ReferenceIndex int     `yaml:"reference_index"`
	ReferenceArea  int     `yaml:"reference_area"`
	DependentArea  int     `yaml:"dependent_area"`
	Ratio          float64 `yaml:"ratio"`
}
