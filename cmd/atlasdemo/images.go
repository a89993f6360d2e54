package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png" // register PNG decoder
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"

	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/gogpu/atlas/internal/parallel"
)

// spriteImage is a decoded sprite in tightly packed RGBA.
type spriteImage struct {
	name   string
	width  int
	height int
	pixels []byte
	alpha  bool
}

// toSprite converts any image to RGBA, downscaling it to fit maxSide.
func toSprite(name string, src image.Image, maxSide int) spriteImage {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		scale := float64(maxSide) / float64(max(w, h))
		w = max(1, int(float64(w)*scale))
		h = max(1, int(float64(h)*scale))
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	alpha := false
	for i := 3; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] != 0xff {
			alpha = true
			break
		}
	}
	return spriteImage{name: name, width: w, height: h, pixels: dst.Pix, alpha: alpha}
}

// loadImages decodes every supported image in dir on the worker pool.
func loadImages(pool *parallel.Pool, dir string, maxSide int) ([]spriteImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".png", ".bmp", ".webp":
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	out := make([]spriteImage, len(names))
	errs := make([]error, len(names))
	pool.ForEach(len(names), func(i int) {
		img, err := decodeFile(filepath.Join(dir, names[i]))
		if err != nil {
			errs[i] = err
			return
		}
		out[i] = toSprite(names[i], img, maxSide)
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the user's flag
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// generateImages draws n procedural sprites of assorted sizes.
// Sizes follow a skewed distribution so small glyph-like images dominate.
// Parameters are drawn up front so the output depends only on rng.
func generateImages(pool *parallel.Pool, rng *rand.Rand, n int) []spriteImage {
	type params struct {
		w, h        int
		c           color.NRGBA
		translucent bool
	}
	ps := make([]params, n)
	for i := range ps {
		ps[i] = params{
			w: 4 + rng.IntN(12)*rng.IntN(4),
			h: 4 + rng.IntN(12)*rng.IntN(4),
			c: color.NRGBA{
				R: uint8(rng.IntN(256)), //nolint:gosec // < 256
				G: uint8(rng.IntN(256)), //nolint:gosec // < 256
				B: uint8(rng.IntN(256)), //nolint:gosec // < 256
				A: 0xff,
			},
			translucent: rng.IntN(3) == 0,
		}
	}

	out := make([]spriteImage, n)
	pool.ForEach(n, func(i int) {
		p := ps[i]
		src := image.NewNRGBA(image.Rect(0, 0, p.w*2, p.h*2))
		for y := range p.h * 2 {
			for x := range p.w * 2 {
				px := p.c
				if (x/4+y/4)%2 == 1 {
					px.R, px.G, px.B = px.G, px.B, px.R
				}
				if p.translucent {
					px.A = 0x80
				}
				src.SetNRGBA(x, y, px)
			}
		}
		// Drawn at twice the size and scaled down so every sprite goes
		// through the same conversion as loaded images.
		out[i] = toSprite(fmt.Sprintf("gen-%03d", i), src, max(p.w, p.h))
	})
	return out
}
