package capture

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ivlev/sky2wallpaper/internal/director"
)

// Capturer drives the animated page and saves element screenshots.
// Calls must not overlap: the page is a single shared surface.
type Capturer interface {
	Open(ctx context.Context) error
	// SetProgress moves the animation to percent and waits for it to settle
	SetProgress(ctx context.Context, percent float64) error
	Screenshot(ctx context.Context, selector, path string) error
	Close() error
}

// CaptureKeyframe sets the animation once and captures every shot of kf into dir, in order
func CaptureKeyframe(ctx context.Context, c Capturer, kf director.Keyframe, dir string) ([]string, error) {
	if err := c.SetProgress(ctx, kf.Sample.Percent); err != nil {
		return nil, fmt.Errorf("set progress %v: %w", kf.Sample.Percent, err)
	}

	paths := make([]string, 0, len(kf.Shots))
	for _, shot := range kf.Shots {
		path := filepath.Join(dir, shot.FileName)
		if err := c.Screenshot(ctx, shot.Layer.Selector, path); err != nil {
			return nil, fmt.Errorf("screenshot %s: %w", shot.FileName, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
