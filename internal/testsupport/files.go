package testsupport

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"vidbunch/internal/meta"
)

// WriteStub writes an executable shell script named name into dir and
// returns its path.
func WriteStub(t testing.TB, dir, name, script string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

// FrameColor is the solid colour WriteFrames uses for frame index i.
func FrameColor(i int) color.RGBA {
	return color.RGBA{R: uint8(i * 10), G: uint8(255 - i*10), B: 128, A: 255}
}

// WriteFrames writes n solid-colour PNG frames of w×h pixels into dir, named
// by pattern with the first file numbered base.
func WriteFrames(t testing.TB, dir, pattern string, base, n, w, h int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for i := range n {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		c := FrameColor(i)
		for y := range h {
			for x := range w {
				img.SetRGBA(x, y, c)
			}
		}
		path := filepath.Join(dir, fmt.Sprintf(pattern, i+base))
		f, err := os.Create(path)
		if err != nil {
			t.Fatalf("create %s: %v", path, err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			t.Fatalf("encode %s: %v", path, err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("close %s: %v", path, err)
		}
	}
}

// WriteMeta writes table as a JSON records file at path.
func WriteMeta(t testing.TB, path string, table meta.Table) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := meta.WriteJSON(f, table); err != nil {
		t.Fatalf("write meta %s: %v", path, err)
	}
}

// Clips returns n clips cycling through classes, each with length frames
// stored under a directory named after the clip id.
func Clips(n, classes, length int) meta.Table {
	table := make(meta.Table, n)
	for i := range table {
		lid := i % classes
		id := fmt.Sprintf("%d", 1000+i)
		table[i] = meta.VideoMeta{
			ID:     id,
			Label:  fmt.Sprintf("Class %d", lid),
			LID:    lid,
			Path:   id,
			Length: length,
			Height: 24,
			Width:  40,
		}
	}
	return table
}

// WriteDataset writes frame directories for every clip of table under root.
func WriteDataset(t testing.TB, root, pattern string, base int, table meta.Table) {
	t.Helper()
	for _, clip := range table {
		WriteFrames(t, filepath.Join(root, clip.Path), pattern, base, clip.Length, clip.Width, clip.Height)
	}
}
