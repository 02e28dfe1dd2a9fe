// Command rcbench exercises the rendercore pipeline and reports throughput.
//
// By default it runs against the in-memory null device, which measures the
// cost of the pipeline itself. With -gpu it opens the real wgpu device.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/rendercore"
	"github.com/gogpu/rendercore/jobs"
)

func main() {
	var (
		frames   = flag.Int("frames", 1000, "frames to render")
		commands = flag.Int("commands", 64, "commands per frame")
		transfer = flag.Int("transfer", 4096, "transient bytes per command")
		workers  = flag.Int("workers", 0, "scheduler workers (0 = GOMAXPROCS)")
		gpu      = flag.Bool("gpu", false, "use the wgpu device instead of the null device")
		verbose  = flag.Bool("v", false, "log pipeline events")
	)
	flag.Parse()

	if *verbose {
		rendercore.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	dev, err := openDevice(*gpu)
	if err != nil {
		log.Fatalf("open device: %v", err)
	}

	pool := jobs.NewPool(*workers)
	defer pool.Close()

	capacity := uint32(*commands * *transfer)
	r := rendercore.New(dev, pool, rendercore.WithTransientCapacity(capacity))
	if err := r.Start(); err != nil {
		log.Fatalf("start renderer: %v", err)
	}

	start := time.Now()
	for f := range *frames {
		for c := range *commands {
			submitFill(r, uint32(f*(*commands)+c), uint32(*transfer))
		}
		if err := r.Frame(); err != nil {
			log.Fatalf("frame %d: %v", f, err)
		}
	}
	r.Wait()
	elapsed := time.Since(start)

	var recs []rendercore.TimingRecord
	timed := 0
	for r.TryGetTimings(&recs) {
		timed++
	}

	r.RequestShutdown()
	r.WaitForShutdownComplete()

	total := *frames * *commands
	fmt.Printf("device:   %s\n", dev.Name())
	fmt.Printf("frames:   %d (%d commands each)\n", *frames, *commands)
	fmt.Printf("elapsed:  %v (%.0f frames/s, %.0f commands/s)\n",
		elapsed.Round(time.Millisecond),
		float64(*frames)/elapsed.Seconds(),
		float64(total)/elapsed.Seconds())
	fmt.Printf("timings:  %d frames still unread\n", timed)
}

// submitFill submits one two-phase command: setup is a no-op, execute fills
// a transient slice with a recognizable pattern inside a timed region.
func submitFill(r *rendercore.Renderer, seq, size uint32) {
	r.Submit(rendercore.Func(func(f *rendercore.Frame) error {
		f.BeginRegion("fill")
		defer f.EndRegion()

		s := f.AllocTransient(size)
		if !s.IsValid() {
			return fmt.Errorf("transient arena exhausted at command %d", seq)
		}
		for off := 0; off+4 <= len(s.Data); off += 4 {
			binary.LittleEndian.PutUint32(s.Data[off:], seq)
		}
		return nil
	}))
}
