package capture

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ExecCapturer runs an external screenshot command once per shot.
// Placeholders: {url}, {selector}, {percent}, {output}, {function}, {settle_ms}.
type ExecCapturer struct {
	Command          []string
	PageURL          string
	ProgressFunction string
	Settle           time.Duration
	Dir              string

	percent    float64
	hasPercent bool
}

// Open checks that the command is available
func (c *ExecCapturer) Open(ctx context.Context) error {
	if len(c.Command) == 0 {
		return errors.New("exec capture: command is empty")
	}
	if _, err := exec.LookPath(c.Command[0]); err != nil {
		return fmt.Errorf("exec capture: %w", err)
	}
	return nil
}

// SetProgress remembers the percent; the command applies it and waits itself
func (c *ExecCapturer) SetProgress(ctx context.Context, percent float64) error {
	c.percent = percent
	c.hasPercent = true
	return ctx.Err()
}

// Screenshot runs the command for one element
func (c *ExecCapturer) Screenshot(ctx context.Context, selector, path string) error {
	if !c.hasPercent {
		return errors.New("exec capture: progress was not set")
	}

	args := c.buildArgs(selector, path)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = c.Dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("exec capture error: %w, output: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Close is a no-op
func (c *ExecCapturer) Close() error {
	return nil
}

func (c *ExecCapturer) buildArgs(selector, path string) []string {
	r := strings.NewReplacer(
		"{url}", c.PageURL,
		"{selector}", selector,
		"{percent}", strconv.FormatFloat(c.percent, 'f', -1, 64),
		"{output}", path,
		"{function}", c.ProgressFunction,
		"{settle_ms}", strconv.FormatInt(c.Settle.Milliseconds(), 10),
	)

	args := make([]string, len(c.Command))
	for i, a := range c.Command {
		args[i] = r.Replace(a)
	}
	return args
}
