package magnify

import "github.com/kujaw077/Reimagining-Breath/pkg/evmtype"

// Settings is the tunable configuration surface, copy-on-write into
// the Magnificator under the processing loop's settings mutex.
type Settings struct {
	Mode                evmtype.Mode
	Grayscale           bool
	Levels              int
	Amplification       float32
	CoLow               float32 // Hz
	CoHigh              float32 // Hz
	CoWavelength        float32
	ChromAttenuation    float32
	Framerate           float32
	MagnifiedOrContours bool
	CSV                 bool
}

// DefaultSettings mirrors the original's out-of-the-box tuning for a
// 30fps source.
func DefaultSettings() Settings {
	return Settings{
		Mode:                evmtype.ModeOff,
		Levels:              4,
		Amplification:       10,
		CoLow:               0.4,
		CoHigh:              3.0,
		CoWavelength:        16,
		ChromAttenuation:    0.1,
		Framerate:           30,
		MagnifiedOrContours: true,
	}
}

// Validate checks the preconditions that belong to the settings
// struct itself; ROI validity is checked separately by the caller via
// evmtype.ROI.Validate.
func (s Settings) Validate(roi evmtype.ROI) error {
	if err := roi.Validate(); err != nil {
		return err
	}
	maxLv := MaxLevelsROI(roi)
	if s.Levels < 1 || s.Levels > maxLv {
		return evmtype.NewConfigError("levels", "must be between 1 and maxLevels(roi)")
	}
	if s.CoLow >= s.CoHigh {
		return evmtype.NewConfigError("coLow/coHigh", "coLow must be less than coHigh")
	}
	if s.ChromAttenuation < 0 || s.ChromAttenuation > 1 {
		return evmtype.NewConfigError("chromAttenuation", "must be within [0,1]")
	}
	if s.Framerate <= 0 {
		return evmtype.NewConfigError("framerate", "must be positive")
	}
	return nil
}
