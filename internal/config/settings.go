package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"jordanella.com/pagestitch/internal/logging"
	"jordanella.com/pagestitch/internal/stitch"
	"jordanella.com/pagestitch/internal/surface"
)

// Settings is the complete configuration of the fullpage tool
type Settings struct {
	Stitch      StitchSettings      `yaml:"stitch"`
	Surface     SurfaceSettings     `yaml:"surface"`
	ADB         ADBSettings         `yaml:"adb"`
	Chrome      ChromeSettings      `yaml:"chrome"`
	Diagnostics DiagnosticsSettings `yaml:"diagnostics"`
	Logging     LoggingSettings     `yaml:"logging"`
}

// StitchSettings mirrors stitch.Config
type StitchSettings struct {
	CutFraction           float64       `yaml:"cutFraction"`
	SwipeLimit            int           `yaml:"swipeLimit"`
	StabilizationDuration time.Duration `yaml:"stabilizationDuration"`
	MatchScoreThreshold   float64       `yaml:"matchScoreThreshold"`
	FrameShift            int           `yaml:"frameShift"`
	SwipeDivider          int           `yaml:"swipeDivider"`
	SwipeDuration         time.Duration `yaml:"swipeDuration"`
	ResetTimeout          time.Duration `yaml:"resetTimeout"`
}

// SurfaceSettings selects the capture backend
type SurfaceSettings struct {
	Kind string `yaml:"kind"` // adb or chrome
}

type ADBSettings struct {
	Path              string        `yaml:"path"`
	Device            string        `yaml:"device"`
	MaxEdgeSwipes     int           `yaml:"maxEdgeSwipes"`
	EdgeSwipeDuration time.Duration `yaml:"edgeSwipeDuration"`
	EdgeSettle        time.Duration `yaml:"edgeSettle"`
}

type ChromeSettings struct {
	URL       string        `yaml:"url"`
	ExecPath  string        `yaml:"execPath"`
	Width     int           `yaml:"width"`
	Height    int           `yaml:"height"`
	DPR       float64       `yaml:"dpr"`
	Mobile    bool          `yaml:"mobile"`
	UserAgent string        `yaml:"userAgent"`
	Headless  bool          `yaml:"headless"`
	LoadWait  time.Duration `yaml:"loadWait"`
}

// DiagnosticsSettings controls where mismatch artifacts and run history go
type DiagnosticsSettings struct {
	Dir            string `yaml:"dir"`
	Database       string `yaml:"database"`
	StoreArtifacts bool   `yaml:"storeArtifacts"`
}

type LoggingSettings struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"` // empty logs to stdout only
}

// NewDefaultSettings creates settings with default values
func NewDefaultSettings() *Settings {
	sc := stitch.DefaultConfig()
	ao := surface.DefaultADBOptions()
	co := surface.DefaultChromeOptions()

	return &Settings{
		Stitch: StitchSettings{
			CutFraction:           sc.CutFraction,
			SwipeLimit:            sc.SwipeLimit,
			StabilizationDuration: sc.StabilizationDuration,
			MatchScoreThreshold:   sc.MatchScoreThreshold,
			FrameShift:            sc.FrameShift,
			SwipeDivider:          sc.SwipeDivider,
			SwipeDuration:         sc.SwipeDuration,
			ResetTimeout:          sc.ResetTimeout,
		},
		Surface: SurfaceSettings{
			Kind: surface.KindADB,
		},
		ADB: ADBSettings{
			MaxEdgeSwipes:     ao.MaxEdgeSwipes,
			EdgeSwipeDuration: ao.EdgeSwipeDuration,
			EdgeSettle:        ao.EdgeSettle,
		},
		Chrome: ChromeSettings{
			Width:    co.Width,
			Height:   co.Height,
			DPR:      co.DPR,
			Mobile:   co.Mobile,
			Headless: co.Headless,
			LoadWait: co.LoadWait,
		},
		Diagnostics: DiagnosticsSettings{
			Dir:            "diagnostics",
			Database:       "data/fullpage.db",
			StoreArtifacts: true,
		},
		Logging: LoggingSettings{
			Level: "INFO",
		},
	}
}

// StitchConfig converts the stitch section
func (s *Settings) StitchConfig() stitch.Config {
	return stitch.Config{
		CutFraction:           s.Stitch.CutFraction,
		SwipeLimit:            s.Stitch.SwipeLimit,
		StabilizationDuration: s.Stitch.StabilizationDuration,
		MatchScoreThreshold:   s.Stitch.MatchScoreThreshold,
		FrameShift:            s.Stitch.FrameShift,
		SwipeDivider:          s.Stitch.SwipeDivider,
		SwipeDuration:         s.Stitch.SwipeDuration,
		ResetTimeout:          s.Stitch.ResetTimeout,
	}
}

// SurfaceConfig converts the surface, adb and chrome sections
func (s *Settings) SurfaceConfig() surface.Config {
	return surface.Config{
		Kind: s.Surface.Kind,
		ADB: surface.ADBOptions{
			Path:              s.ADB.Path,
			Device:            s.ADB.Device,
			MaxEdgeSwipes:     s.ADB.MaxEdgeSwipes,
			EdgeSwipeDuration: s.ADB.EdgeSwipeDuration,
			EdgeSettle:        s.ADB.EdgeSettle,
		},
		Chrome: surface.ChromeOptions{
			URL:       s.Chrome.URL,
			ExecPath:  s.Chrome.ExecPath,
			Width:     s.Chrome.Width,
			Height:    s.Chrome.Height,
			DPR:       s.Chrome.DPR,
			Mobile:    s.Chrome.Mobile,
			UserAgent: s.Chrome.UserAgent,
			Headless:  s.Chrome.Headless,
			LoadWait:  s.Chrome.LoadWait,
		},
	}
}

// LogLevel parses the logging level
func (s *Settings) LogLevel() (logging.LogLevel, error) {
	return logging.ParseLevel(s.Logging.Level)
}

// Validate reports every invalid setting
func (s *Settings) Validate() error {
	var errs []error

	if err := s.StitchConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(s.Surface.Kind) {
	case surface.KindADB:
	case surface.KindChrome:
		if s.Chrome.URL == "" {
			errs = append(errs, fmt.Errorf("chrome surface requires a url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown surface kind %q", s.Surface.Kind))
	}

	if _, err := s.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
