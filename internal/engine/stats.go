package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/sky2wallpaper/internal/system"
)

const benchmarkLog = "benchmark.log"

// report prints the performance summary and appends one line to benchmark.log in the output directory
func (p *WallpaperProject) report(stats Stats) {
	host := system.HostSummary().String()

	fmt.Fprintf(p.Out,
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Run: %s\n"+
			"Host: %s\n"+
			"Keyframes: %d (%s)\n"+
			"Total Time: %.2fs\n"+
			"Capture: %.2fs\n"+
			"Composite: %.2fs\n"+
			"Package: %.2fs\n"+
			"----------------------------\n",
		p.Config.BuildVersion, stats.RunID, host, stats.Keyframes, stats.Frame,
		stats.Total.Seconds(), stats.Capture.Seconds(), stats.Composite.Seconds(), stats.Package.Seconds(),
	)

	entry := fmt.Sprintf("[%s] Build: %s | Run: %s | Page: %s | Keyframes: %d | Total: %.2fs | Capture: %.2fs | Composite: %.2fs | Package: %.2fs\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		stats.RunID,
		p.Config.PageURL,
		stats.Keyframes,
		stats.Total.Seconds(),
		stats.Capture.Seconds(),
		stats.Composite.Seconds(),
		stats.Package.Seconds(),
	)

	f, err := os.OpenFile(filepath.Join(p.Config.OutputDir, benchmarkLog), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(p.Out, "[!] Не удалось записать %s: %v\n", benchmarkLog, err)
		return
	}
	defer f.Close()
	f.WriteString(entry)
}
