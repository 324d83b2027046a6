package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMaskStackValidatesShape(t *testing.T) {
	_, err := NewMaskStack(2, 2, []Mask{{Pix: make([]uint8, 4)}, {Pix: make([]uint8, 5)}})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = NewMaskStack(-1, 2, nil)
	assert.Error(t, err)

	s, err := NewMaskStack(3, 4, nil)
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestMaskArea(t *testing.T) {
	assert.Equal(t, 3, Mask{Pix: []uint8{0, 1, 255, 0, 7}}.Area())
	assert.Zero(t, Mask{}.Area())
}

func TestStackFromLabels(t *testing.T) {
	labels := []int64{
		0, 4, 4,
		9, 0, -1,
	}
	s, err := StackFromLabels(2, 3, labels)
	require.NoError(t, err)
	require.Len(t, s.Masks, 2)
	assert.Equal(t, []uint8{0, 1, 1, 0, 0, 0}, s.Masks[0].Pix)
	assert.Equal(t, []uint8{0, 0, 0, 1, 0, 0}, s.Masks[1].Pix)

	_, err = StackFromLabels(2, 2, labels)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSameExtent(t *testing.T) {
	a := &MaskStack{Height: 2, Width: 3, Masks: []Mask{{Pix: make([]uint8, 6)}}}
	b := &MaskStack{Height: 3, Width: 2, Masks: []Mask{{Pix: make([]uint8, 6)}}}

	assert.True(t, a.SameExtent(a))
	assert.False(t, a.SameExtent(b))
	assert.True(t, a.SameExtent(nil))
	assert.True(t, (*MaskStack)(nil).SameExtent(b))
	assert.True(t, a.SameExtent(&MaskStack{}))
	assert.False(t, a.SameExtent(&MaskStack{Height: 3, Width: 3}))
}

func TestLabelMapAt(t *testing.T) {
	lm := &LabelMap{Height: 2, Width: 2, Labels: []int32{0, 1, 2, 3}}

	v, ok := lm.At(1, 0)
	assert.True(t, ok)
	assert.Equal(t, int32(2), v)

	for _, rc := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		_, ok := lm.At(rc[0], rc[1])
		assert.False(t, ok, "%v", rc)
	}
}

func TestMaskStackValidate(t *testing.T) {
	var nilStack *MaskStack
	assert.NoError(t, nilStack.Validate())
	assert.NoError(t, (&MaskStack{}).Validate())
	assert.NoError(t, (&MaskStack{Height: 2, Width: 2, Masks: []Mask{{Pix: make([]uint8, 4)}}}).Validate())

	short := &MaskStack{Height: 2, Width: 2, Masks: []Mask{{Pix: make([]uint8, 3)}}}
	assert.ErrorIs(t, short.Validate(), ErrShapeMismatch)
}
