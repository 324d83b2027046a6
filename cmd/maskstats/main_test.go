package main

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maskstats/pkg/export"
)

// writeLabels saves a gray label image with square objects at the given
// top-left corners
func writeLabels(t *testing.T, path string, w, h, size int, corners ...image.Point) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, c := range corners {
		for y := c.Y; y < c.Y+size; y++ {
			for x := c.X; x < c.X+size; x++ {
				img.SetGray(x, y, color.Gray{Y: uint8(i + 1)})
			}
		}
	}
	require.NoError(t, imaging.Save(img, path))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSpatialCommand(t *testing.T) {
	dir := t.TempDir()
	cells := filepath.Join(dir, "cells.png")
	writeLabels(t, cells, 100, 100, 4, image.Pt(10, 10), image.Pt(40, 10))

	out, err := run(t, "--config", filepath.Join(dir, "none.yaml"), "spatial", cells)
	require.NoError(t, err)
	assert.Contains(t, out, "Spatial distribution")
	assert.Contains(t, out, "avg_nnd:             30.0000")
	assert.Contains(t, out, "dist_unit:           px")
}

func TestBasicCommandMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "--config", filepath.Join(dir, "none.yaml"), "basic", filepath.Join(dir, "absent.npz"))
	require.NoError(t, err)
	assert.Contains(t, out, "count:               0")
}

func TestRelateCommandShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	cells := filepath.Join(dir, "cells.png")
	nuclei := filepath.Join(dir, "nuclei.png")
	writeLabels(t, cells, 50, 50, 10, image.Pt(0, 0))
	writeLabels(t, nuclei, 60, 50, 2, image.Pt(4, 4))

	_, err := run(t, "--config", filepath.Join(dir, "none.yaml"), "relate", cells, nuclei)
	assert.ErrorContains(t, err, "mask shape mismatch")
}

func TestPixelSizeMustBePositive(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "--config", filepath.Join(dir, "none.yaml"), "--pixel-size", "0", "basic", "x.npz")
	assert.ErrorIs(t, err, errPixelSize)
}

func TestAnalyzeCommandWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	cells := filepath.Join(dir, "cells.png")
	nuclei := filepath.Join(dir, "nuclei.png")
	writeLabels(t, cells, 80, 80, 20, image.Pt(0, 0), image.Pt(40, 0))
	writeLabels(t, nuclei, 80, 80, 4, image.Pt(8, 8), image.Pt(48, 8), image.Pt(60, 60))

	outDir := filepath.Join(dir, "out")
	db := filepath.Join(dir, "runs.db")
	out, err := run(t, "--config", filepath.Join(dir, "none.yaml"), "--pixel-size", "0.5",
		"analyze", "--cells", cells, "--nuclei", nuclei, "--out", outDir, "--db", db, "--render")
	require.NoError(t, err)
	assert.Contains(t, out, "Cell/nucleus relationships")
	assert.Contains(t, out, "matched_pairs:       2")

	report, err := export.ReadReport(filepath.Join(outDir, "report.yaml"))
	require.NoError(t, err)
	require.NotNil(t, report.PixelSize)
	assert.Equal(t, 0.5, *report.PixelSize)
	assert.NotNil(t, report.Sheet(export.SheetMatchedPairs))

	for _, name := range []string{"report.xlsx", "overlay.png", "nnd_histogram.png"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	list, err := run(t, "--config", filepath.Join(dir, "none.yaml"), "runs", "list", "--db", db)
	require.NoError(t, err)
	ids := strings.Fields(list)
	require.Len(t, ids, 1)

	shown, err := run(t, "--config", filepath.Join(dir, "none.yaml"), "runs", "show", ids[0], "--db", db)
	require.NoError(t, err)
	assert.Contains(t, shown, "avg_ratio:")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maskstats.yaml")

	_, err := run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = run(t, "--config", path, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)
}
