package capture

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Size is the pixel size of a captured frame
type Size struct {
	Width, Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// VerifyImage checks that path holds a decodable raster image and returns its size
func VerifyImage(path string) (Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return Size{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Size{}, fmt.Errorf("%s is not an image: %w", path, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return Size{}, fmt.Errorf("%s: empty %s image", path, format)
	}
	return Size{Width: cfg.Width, Height: cfg.Height}, nil
}
