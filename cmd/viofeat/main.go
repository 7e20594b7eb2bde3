// Package main provides the CLI wrapper for the viofeat tracker.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viofeat/viofeat/internal/config"
	"github.com/viofeat/viofeat/pkg/capture"
	"github.com/viofeat/viofeat/pkg/node"
)

var (
	version = "0.1.0"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	leftDir := flag.String("left", "", "Dataset directory for the left camera (live camera if empty)")
	rightDir := flag.String("right", "", "Dataset directory for the right camera (stereo datasets only)")
	cameraID := flag.Int("camera", -1, "Camera device ID (overrides config)")
	listCameras := flag.Bool("list-cameras", false, "List detected camera devices and exit")
	preview := flag.Bool("preview", false, "Show the track overlay in a window")
	verbose := flag.Bool("verbose", false, "Enable verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "viofeat - visual feature tracker front-end for VIO\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -config config.toml                    # Track from the live camera\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config config.toml -left data/cam0    # Replay a monocular dataset\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config config.toml -left data/cam0 -right data/cam1  # Replay a stereo dataset\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config config.toml -preview           # Show the overlay window\n", os.Args[0])
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("viofeat version %s\n", version)
		os.Exit(0)
	}

	if *listCameras {
		devices := capture.EnumerateCameras(10)
		fmt.Printf("Detected camera devices: %v\n", devices)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *cameraID >= 0 {
		cfg.Camera.DeviceID = *cameraID
	}
	if len(cfg.Camera.Calib) == 0 {
		log.Fatalf("No calibration files configured; set camera.calib in the config file")
	}

	if *verbose {
		log.Printf("Configuration:")
		log.Printf("  Tracker: max_cnt=%d, min_dist=%.0f, flow_back=%v, equalize=%v",
			cfg.Tracker.MaxCnt, cfg.Tracker.MinDist, cfg.Tracker.FlowBack, cfg.Tracker.Equalize)
		log.Printf("  Tracker: f_threshold=%.2f, focal_length=%.0f",
			cfg.Tracker.FThreshold, cfg.Tracker.FocalLength)
		log.Printf("  Cameras: %d calibration file(s)", len(cfg.Camera.Calib))
	}

	n, err := node.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create tracking node: %v", err)
	}
	defer n.Close()

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Printf("Metrics listening on %s", cfg.Metrics.Listen)
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	sources, err := openSources(cfg, *leftDir, *rightDir)
	if err != nil {
		log.Fatalf("Failed to open image source: %v", err)
	}
	for _, s := range sources {
		defer s.Close()
	}

	resultCh := n.Subscribe()
	if err := n.Start(); err != nil {
		log.Fatalf("Failed to start node: %v", err)
	}

	if *preview {
		display := capture.NewTrackDisplay("viofeat tracks", cfg.Camera.FPS, n.Overlay)
		defer display.Close()
		log.Println("Preview window enabled")
	}

	// Feed the node from each source on its own goroutine, mirroring the
	// per-camera producer threads of the upstream system.
	done := make(chan struct{}, len(sources))
	for cam, src := range sources {
		go func(cam int, src capture.Source) {
			defer func() { done <- struct{}{} }()
			for {
				frame, err := src.Next()
				if err == io.EOF {
					return
				}
				if err != nil {
					log.Printf("Camera %d: %v", cam, err)
					continue
				}
				n.PushFrame(cam, frame.Time, frame.Image)
				frame.Image.Close()
			}
		}(cam, src)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Println("Tracking started. Press Ctrl+C to stop.")

	finished := 0
	frameCount := 0
	for {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down...", sig)
			return

		case <-done:
			finished++
			if finished == len(sources) {
				log.Println("All sources exhausted, shutting down...")
				return
			}

		case res, ok := <-resultCh:
			if !ok {
				return
			}
			frameCount++
			if *verbose && frameCount%30 == 0 {
				log.Printf("Frame t=%.3f: %d landmarks", res.Time, len(res.Features))
			}
		}
	}
}

// openSources builds one source per configured camera: dataset directories
// when given, the live device otherwise.
func openSources(cfg *config.Config, leftDir, rightDir string) ([]capture.Source, error) {
	if leftDir == "" && rightDir != "" {
		return nil, fmt.Errorf("-right requires -left")
	}

	if leftDir == "" {
		cam := capture.NewCamera()
		if err := cam.Open(cfg.Camera.DeviceID, cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS); err != nil {
			return nil, err
		}
		w, h := cam.ActualResolution()
		log.Printf("Camera opened: %dx%d@%dfps", w, h, cam.ActualFPS())
		return []capture.Source{cam}, nil
	}

	left, err := capture.NewDataset(leftDir, float64(cfg.Camera.FPS))
	if err != nil {
		return nil, err
	}
	sources := []capture.Source{left}
	log.Printf("Left dataset: %d frames", left.Len())

	if rightDir != "" {
		right, err := capture.NewDataset(rightDir, float64(cfg.Camera.FPS))
		if err != nil {
			return nil, err
		}
		sources = append(sources, right)
		log.Printf("Right dataset: %d frames", right.Len())
	}
	return sources, nil
}
