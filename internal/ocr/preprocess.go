package ocr

import (
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// PreprocessImage normalizes a raster page or photo for recognition:
// grayscale, contrast boost, light denoise, Otsu binarization and a
// morphological close to reconnect broken glyph strokes.
func PreprocessImage(src image.Image) *image.Gray {
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.AdjustBrightness(img, 10)
	img = imaging.Blur(img, 0.6)

	gray := toGray(img)
	bin := binarize(gray, otsuThreshold(gray))
	return morphClose(bin, 1)
}

// preprocessToFile writes the prepared bitmap into a temp dir and
// returns its path plus a cleanup func.
func preprocessToFile(path string) (string, func(), error) {
	src, err := imaging.Open(path)
	if err != nil {
		return "", nil, err
	}
	out := PreprocessImage(src)

	tmpDir, err := os.MkdirTemp("", "invscan-prep-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	outPath := filepath.Join(tmpDir, "prepared.png")
	if err := imaging.Save(out, outPath); err != nil {
		cleanup()
		return "", nil, err
	}
	return outPath, cleanup, nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, gr, bl, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma
			lum := (299*r + 587*gr + 114*bl) / 1000
			g.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: uint8(lum >> 8)})
		}
	}
	return g
}

// otsuThreshold picks the global threshold maximizing between-class
// variance over the gray histogram.
func otsuThreshold(g *image.Gray) uint8 {
	var hist [256]int
	total := 0
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[g.GrayAt(x, y).Y]++
			total++
		}
	}
	if total == 0 {
		return 128
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumB, wB float64
	var best float64
	threshold := uint8(128)
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

func binarize(g *image.Gray, threshold uint8) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if g.GrayAt(x, y).Y > threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// morphClose dilates then erodes the white background with a square
// structuring element of the given radius, filling pinholes in glyphs.
func morphClose(g *image.Gray, radius int) *image.Gray {
	return erode(dilate(g, radius), radius)
}

func dilate(g *image.Gray, radius int) *image.Gray {
	return neighborhood(g, radius, func(best, v uint8) bool { return v > best })
}

func erode(g *image.Gray, radius int) *image.Gray {
	return neighborhood(g, radius, func(best, v uint8) bool { return v < best })
}

func neighborhood(g *image.Gray, radius int, better func(best, v uint8) bool) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			best := g.GrayAt(x, y).Y
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					nx, ny := x+dx, y+dy
					if nx < b.Min.X || nx >= b.Max.X || ny < b.Min.Y || ny >= b.Max.Y {
						continue
					}
					if v := g.GrayAt(nx, ny).Y; better(best, v) {
						best = v
					}
				}
			}
			out.SetGray(x, y, color.Gray{Y: best})
		}
	}
	return out
}
