package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/sky2wallpaper/internal/capture"
	"github.com/ivlev/sky2wallpaper/internal/config"
	"github.com/ivlev/sky2wallpaper/internal/director"
	"github.com/ivlev/sky2wallpaper/internal/effects"
	"github.com/ivlev/sky2wallpaper/internal/packager"
	"github.com/ivlev/sky2wallpaper/internal/solar"
	"github.com/ivlev/sky2wallpaper/internal/system"
)

// ErrCollaboratorFailure matches every failed capture, composite or package step
var ErrCollaboratorFailure = errors.New("collaborator failure")

// StepError reports which pipeline step failed
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) Is(target error) bool {
	return target == ErrCollaboratorFailure
}

const lockName = ".sky2wallpaper.lock"

// WallpaperProject runs the capture -> composite -> metadata -> package pipeline
type WallpaperProject struct {
	Config     *config.Config
	Plan       *director.Plan // nil: built from Config
	Capturer   capture.Capturer
	Compositor effects.Compositor
	Packager   packager.Packager
	Logger     *slog.Logger
	Out        io.Writer // operator progress lines
}

// NewWallpaperProject wires the collaborators; Compositor and Packager may be nil
// when the config does not need them.
func NewWallpaperProject(cfg *config.Config, c capture.Capturer, comp effects.Compositor, pkg packager.Packager, logger *slog.Logger) *WallpaperProject {
	return &WallpaperProject{
		Config:     cfg,
		Capturer:   c,
		Compositor: comp,
		Packager:   pkg,
		Logger:     logger,
		Out:        os.Stdout,
	}
}

// Stats holds the step timings of one run
type Stats struct {
	RunID     string
	Keyframes int
	Frame     capture.Size
	Total     time.Duration
	Capture   time.Duration
	Composite time.Duration
	Package   time.Duration
}

// Run executes the whole pipeline. Records are built before the first capture,
// and config.json is written only after every image exists.
func (p *WallpaperProject) Run(ctx context.Context) error {
	startTime := time.Now()
	stats := Stats{RunID: uuid.NewString()}
	p.Logger = p.Logger.With("run_id", stats.RunID)

	unlock, err := p.lockOutput()
	if err != nil {
		return err
	}
	defer unlock()

	plan, records, err := p.prepare()
	if err != nil {
		return err
	}
	stats.Keyframes = len(plan.Keyframes)

	fmt.Fprintln(p.Out, "--- [PROJECT: SKY WALLPAPER] ---")
	fmt.Fprintf(p.Out, "[*] Страница: %s | Кадров: %d | Слоёв: %d\n", p.Config.PageURL, len(plan.Keyframes), len(plan.Keyframes[0].Shots))
	fmt.Fprintf(p.Out, "[*] Папка: %s | Высота солнца: %s\n", p.Config.OutputDir, p.Config.Altitude.Policy)
	fmt.Fprintln(p.Out, "-----------------------------")

	// 1. Захват строго по порядку плана: страница одна на всех
	captureStart := time.Now()
	frame, err := p.captureAll(ctx, plan)
	if err != nil {
		return err
	}
	stats.Capture = time.Since(captureStart)
	stats.Frame = frame

	// 2. Склейка слоёв: каждый кадр пишет свой файл, поэтому параллельно
	if overlay := p.Config.Layers.Overlay; overlay != nil {
		compositeStart := time.Now()
		if err := p.compositeAll(ctx, plan, p.Config.Layers.Base.Name, overlay.Name); err != nil {
			return err
		}
		stats.Composite = time.Since(compositeStart)
	}

	// 3. Метаданные
	configPath := p.Config.ConfigPath()
	if err := solar.WriteConfig(configPath, records); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	fmt.Fprintf(p.Out, "[*] Сохранён %s\n", configPath)

	// 4. Упаковка
	if p.Config.Package.Enabled {
		if p.Packager == nil {
			return &StepError{Step: "package", Err: errors.New("packager is not configured")}
		}
		fmt.Fprintln(p.Out, "[*] Сборка динамических обоев...")
		packageStart := time.Now()
		if err := p.Packager.Package(ctx, configPath, p.Config.Package.Output); err != nil {
			return &StepError{Step: "package", Err: err}
		}
		stats.Package = time.Since(packageStart)
		fmt.Fprintf(p.Out, "[+++] Успех! Результат: %s\n", filepath.Join(p.Config.OutputDir, p.Config.Package.Output))
	}

	stats.Total = time.Since(startTime)
	p.Logger.Info("run finished",
		"keyframes", stats.Keyframes,
		"frame", stats.Frame.String(),
		"total", stats.Total.Round(time.Millisecond),
	)
	if p.Config.ShowStats {
		p.report(stats)
	}
	return nil
}

// Metadata rebuilds config.json for images captured by an earlier run
func (p *WallpaperProject) Metadata(ctx context.Context) error {
	unlock, err := p.lockOutput()
	if err != nil {
		return err
	}
	defer unlock()

	_, records, err := p.prepare()
	if err != nil {
		return err
	}

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := capture.VerifyImage(filepath.Join(p.Config.OutputDir, r.FileName)); err != nil {
			return fmt.Errorf("image for %s: %w", r.FileName, err)
		}
	}

	configPath := p.Config.ConfigPath()
	if err := solar.WriteConfig(configPath, records); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	fmt.Fprintf(p.Out, "[*] Сохранён %s (%d записей)\n", configPath, len(records))
	return nil
}

// prepare plans and builds every record; nothing is captured if it fails
func (p *WallpaperProject) prepare() (*director.Plan, []solar.Record, error) {
	plan := p.Plan
	if plan == nil {
		planner, err := p.Config.Planner()
		if err != nil {
			return nil, nil, err
		}
		plan, err = planner.Plan()
		if err != nil {
			return nil, nil, err
		}
	}
	if len(plan.Keyframes) == 0 {
		return nil, nil, fmt.Errorf("%w: plan has no keyframes", director.ErrInvalidConfiguration)
	}
	if p.Plan != nil {
		if err := director.CheckFullCycle(plan.Samples()); err != nil {
			return nil, nil, err
		}
	}

	policy, err := p.Config.Policy()
	if err != nil {
		return nil, nil, err
	}

	records, err := p.Config.Builder().Build(plan.Samples(), policy)
	if err != nil {
		return nil, nil, err
	}

	// Записи ссылаются на снимки базового слоя; слой для склейки нужен до захвата
	base := p.Config.Layers.Base.Name
	for i, kf := range plan.Keyframes {
		shot, ok := findShot(kf, base)
		if !ok || shot.FileName != records[i].FileName {
			return nil, nil, fmt.Errorf("%w: keyframe %v has no %q shot named %s",
				director.ErrInvalidConfiguration, kf.Sample.Percent, base, records[i].FileName)
		}
		if overlay := p.Config.Layers.Overlay; overlay != nil {
			if _, ok := findShot(kf, overlay.Name); !ok {
				return nil, nil, fmt.Errorf("%w: keyframe %v has no %q shot",
					director.ErrInvalidConfiguration, kf.Sample.Percent, overlay.Name)
			}
		}
	}

	p.Logger.Debug("plan ready", "keyframes", len(plan.Keyframes), "policy", p.Config.Altitude.Policy)
	return plan, records, nil
}

func (p *WallpaperProject) captureAll(ctx context.Context, plan *director.Plan) (capture.Size, error) {
	if p.Capturer == nil {
		return capture.Size{}, &StepError{Step: "capture", Err: errors.New("capturer is not configured")}
	}
	if err := p.Capturer.Open(ctx); err != nil {
		p.Capturer.Close()
		return capture.Size{}, &StepError{Step: "capture", Err: err}
	}
	defer func() {
		if err := p.Capturer.Close(); err != nil {
			p.Logger.Warn("capture close failed", "error", err)
		}
	}()

	var frame capture.Size
	total := len(plan.Keyframes)
	for i, kf := range plan.Keyframes {
		paths, err := capture.CaptureKeyframe(ctx, p.Capturer, kf, p.Config.OutputDir)
		if err != nil {
			return capture.Size{}, &StepError{Step: "capture", Err: err}
		}

		for _, path := range paths {
			size, err := capture.VerifyImage(path)
			if err != nil {
				return capture.Size{}, &StepError{Step: "capture", Err: err}
			}
			// Все кадры одного размера, иначе упаковщик соберёт мусор
			if frame == (capture.Size{}) {
				frame = size
			} else if size != frame {
				return capture.Size{}, &StepError{Step: "capture", Err: fmt.Errorf("%s is %s, expected %s", filepath.Base(path), size, frame)}
			}
			p.Logger.Debug("saved", "file", filepath.Base(path), "percent", kf.Sample.Percent)
		}
		fmt.Fprintf(p.Out, "[>] Ready: %d/%d (%s%%)\n", i+1, total, director.FormatPercent(kf.Sample.Percent))
	}
	return frame, nil
}

func (p *WallpaperProject) compositeAll(ctx context.Context, plan *director.Plan, base, overlay string) error {
	if p.Compositor == nil {
		return &StepError{Step: "composite", Err: errors.New("compositor is not configured")}
	}

	workers := p.Config.Composite.Workers
	if workers <= 0 {
		workers = system.DefaultWorkers()
	}

	fmt.Fprintf(p.Out, "[*] Склейка слоёв %s + %s (%d потоков)...\n", base, overlay, workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var overlays []string
	for _, kf := range plan.Keyframes {
		baseShot, ok1 := findShot(kf, base)
		overlayShot, ok2 := findShot(kf, overlay)
		if !ok1 || !ok2 {
			return fmt.Errorf("%w: keyframe %v lacks %s or %s shot", director.ErrInvalidConfiguration, kf.Sample.Percent, base, overlay)
		}

		basePath := filepath.Join(p.Config.OutputDir, baseShot.FileName)
		overlayPath := filepath.Join(p.Config.OutputDir, overlayShot.FileName)
		overlays = append(overlays, overlayPath)

		g.Go(func() error {
			if err := p.Compositor.Composite(gctx, basePath, overlayPath, basePath); err != nil {
				return &StepError{Step: "composite", Err: fmt.Errorf("%s: %w", baseShot.FileName, err)}
			}
			p.Logger.Debug("composited", "file", baseShot.FileName)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if p.Config.Composite.KeepOverlay {
		return nil
	}
	fmt.Fprintf(p.Out, "[*] Удаление временных файлов %s-*...\n", overlay)
	for _, path := range overlays {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.Logger.Warn("cannot remove overlay", "file", path, "error", err)
		}
	}
	return nil
}

// lockOutput creates the output directory and holds an exclusive lock on it
func (p *WallpaperProject) lockOutput() (func(), error) {
	if err := os.MkdirAll(p.Config.OutputDir, 0755); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(p.Config.OutputDir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another run is already using %s", p.Config.OutputDir)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			p.Logger.Warn("unlock failed", "error", err)
		}
		os.Remove(lock.Path())
	}, nil
}

func findShot(kf director.Keyframe, layer string) (director.Shot, bool) {
	for _, s := range kf.Shots {
		if s.Layer.Name == layer {
			return s, true
		}
	}
	return director.Shot{}, false
}
