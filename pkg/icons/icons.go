// Package icons generates the placeholder icon set embedded in every
// package payload. Hosts expect a 64x64 and an 80x80 icon; when the caller
// supplies no source image, a flat tile colored from the package name is
// synthesized so the set is still complete and reproducible.
package icons

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // jpeg icon sources
	"image/png"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
)

// Sizes is the icon edge lengths required by the host UI.
var Sizes = []uint{64, 80}

// GeneratePlaceholders writes the icon set for the named package into
// destDir as <name>_<size>.png. srcPath may be empty.
func GeneratePlaceholders(srcPath, name, destDir string) error {
	src, err := loadSource(srcPath, name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating icon dir: %w", err)
	}

	for _, size := range Sizes {
		scaled := resize.Resize(size, size, src, resize.Lanczos3)

		path := filepath.Join(destDir, fmt.Sprintf("%s_%d.png", name, size))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating icon %s: %w", path, err)
		}
		if err := png.Encode(f, scaled); err != nil {
			f.Close()
			return fmt.Errorf("encoding icon %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	return nil
}

func loadSource(srcPath, name string) (image.Image, error) {
	if srcPath == "" {
		return placeholderTile(name), nil
	}

	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("opening icon source: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding icon source %s: %w", srcPath, err)
	}
	return img, nil
}

// placeholderTile synthesizes a flat 128x128 tile with a color derived from
// the package name, so rebuilds of the same package stay byte-identical.
func placeholderTile(name string) image.Image {
	h := fnv.New32a()
	h.Write([]byte(name))
	sum := h.Sum32()

	tile := image.NewRGBA(image.Rect(0, 0, 128, 128))
	fill := color.RGBA{
		R: uint8(sum >> 16),
		G: uint8(sum >> 8),
		B: uint8(sum),
		A: 0xff,
	}
	draw.Draw(tile, tile.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)
	return tile
}
