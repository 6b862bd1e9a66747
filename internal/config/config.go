// Package config holds process-level defaults and flag wiring for the
// EVM core's entry point, grounded on cmd/server/main.go's flag block:
// every flag is bound to a field of one Flags struct the rest of the
// program reads from, no viper/cobra/koanf anywhere in the corpus.
package config

import (
	"flag"

	"github.com/kujaw077/Reimagining-Breath/internal/magnify"
	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

// Flags holds every command-line-configurable default for cmd/evmserver.
type Flags struct {
	ShmSourceName string
	HTTPAddr      string
	MetricsAddr   string
	PprofAddr     string
	RecordPath    string
	MaxClients    int
	STUNServers   string
	LogLevel      string
	LogColor      bool

	Mode          string
	Levels        int
	Amplification float64
	CoLow         float64
	CoHigh        float64
	CoWavelength  float64
	ChromAtten    float64
	Framerate     float64
	Grayscale     bool
	CSV           bool

	ROIX, ROIY, ROIW, ROIH int
	QueueLen               int

	ScalarSink string // "file", "shm", or "none"
	ScalarPath string
}

// RegisterFlags registers every flag on fs (pass flag.CommandLine in
// production, a fresh flag.FlagSet in tests) and returns the struct
// flag.Parse will populate.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ShmSourceName, "shm", "/evm_source", "Shared memory name for the frame source")
	fs.StringVar(&f.HTTPAddr, "http", ":8081", "HTTP server address")
	fs.StringVar(&f.MetricsAddr, "metrics", ":9090", "Metrics server address")
	fs.StringVar(&f.PprofAddr, "pprof", ":6060", "pprof server address")
	fs.StringVar(&f.RecordPath, "record-path", "./recordings", "Recording output path")
	fs.IntVar(&f.MaxClients, "max-clients", 10, "Maximum WebRTC clients")
	fs.StringVar(&f.STUNServers, "stun", "stun:stun.l.google.com:19302", "STUN server URLs (comma-separated)")
	fs.StringVar(&f.LogLevel, "log-level", "info", "Log level (debug, info, warn, error, silent)")
	fs.BoolVar(&f.LogColor, "log-color", true, "Enable colored log output")

	fs.StringVar(&f.Mode, "mode", "off", "Magnification mode (off, color, laplace, riesz)")
	fs.IntVar(&f.Levels, "levels", 4, "Pyramid depth")
	fs.Float64Var(&f.Amplification, "amplification", 10, "Amplification magnitude")
	fs.Float64Var(&f.CoLow, "co-low", 0.4, "Low temporal cutoff (Hz)")
	fs.Float64Var(&f.CoHigh, "co-high", 3.0, "High temporal cutoff (Hz)")
	fs.Float64Var(&f.CoWavelength, "co-wavelength", 16, "Cutoff wavelength")
	fs.Float64Var(&f.ChromAtten, "chroma-attenuation", 0.1, "Chromatic attenuation (Laplace mode)")
	fs.Float64Var(&f.Framerate, "framerate", 30, "Capture framerate (Hz)")
	fs.BoolVar(&f.Grayscale, "grayscale", false, "Force single-channel processing")
	fs.BoolVar(&f.CSV, "csv", false, "Enable best-effort breath CSV logging")

	fs.IntVar(&f.ROIX, "roi-x", 0, "ROI x origin")
	fs.IntVar(&f.ROIY, "roi-y", 0, "ROI y origin")
	fs.IntVar(&f.ROIW, "roi-w", 320, "ROI width")
	fs.IntVar(&f.ROIH, "roi-h", 240, "ROI height")
	fs.IntVar(&f.QueueLen, "queue-len", 2, "Processing input queue length")

	fs.StringVar(&f.ScalarSink, "scalar-sink", "none", "External scalar sink (file, shm, none)")
	fs.StringVar(&f.ScalarPath, "scalar-path", "./breath.bin", "Path or shm name for the scalar sink")

	return f
}

// Settings builds a magnify.Settings from the flags.
func (f *Flags) Settings() magnify.Settings {
	return magnify.Settings{
		Mode:                parseMode(f.Mode),
		Grayscale:           f.Grayscale,
		Levels:              f.Levels,
		Amplification:       float32(f.Amplification),
		CoLow:               float32(f.CoLow),
		CoHigh:              float32(f.CoHigh),
		CoWavelength:        float32(f.CoWavelength),
		ChromAttenuation:    float32(f.ChromAtten),
		Framerate:           float32(f.Framerate),
		MagnifiedOrContours: true,
		CSV:                 f.CSV,
	}
}

// ROI builds an evmtype.ROI from the flags.
func (f *Flags) ROI() evmtype.ROI {
	return evmtype.ROI{X: f.ROIX, Y: f.ROIY, W: f.ROIW, H: f.ROIH}
}

func parseMode(s string) evmtype.Mode {
	switch s {
	case "color":
		return evmtype.ModeColor
	case "laplace":
		return evmtype.ModeLaplace
	case "riesz":
		return evmtype.ModeRiesz
	default:
		return evmtype.ModeOff
	}
}
