package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Load reads settings from an INI or YAML file chosen by extension
func Load(path string) (*Settings, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadFromYAML(path)
	default:
		return LoadFromINI(path)
	}
}

// LoadFromINI loads configuration from an INI file. Missing keys keep their defaults.
func LoadFromINI(path string) (*Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	d := NewDefaultSettings()
	s := &Settings{}

	section := cfg.Section("Stitch")
	s.Stitch.CutFraction = section.Key("cutFraction").MustFloat64(d.Stitch.CutFraction)
	s.Stitch.SwipeLimit = section.Key("swipeLimit").MustInt(d.Stitch.SwipeLimit)
	s.Stitch.StabilizationDuration = section.Key("stabilizationDuration").MustDuration(d.Stitch.StabilizationDuration)
	s.Stitch.MatchScoreThreshold = section.Key("matchScoreThreshold").MustFloat64(d.Stitch.MatchScoreThreshold)
	s.Stitch.FrameShift = section.Key("frameShift").MustInt(d.Stitch.FrameShift)
	s.Stitch.SwipeDivider = section.Key("swipeDivider").MustInt(d.Stitch.SwipeDivider)
	s.Stitch.SwipeDuration = section.Key("swipeDuration").MustDuration(d.Stitch.SwipeDuration)
	s.Stitch.ResetTimeout = section.Key("resetTimeout").MustDuration(d.Stitch.ResetTimeout)

	section = cfg.Section("Surface")
	s.Surface.Kind = section.Key("kind").MustString(d.Surface.Kind)

	section = cfg.Section("ADB")
	s.ADB.Path = section.Key("path").MustString(d.ADB.Path)
	s.ADB.Device = section.Key("device").MustString(d.ADB.Device)
	s.ADB.MaxEdgeSwipes = section.Key("maxEdgeSwipes").MustInt(d.ADB.MaxEdgeSwipes)
	s.ADB.EdgeSwipeDuration = section.Key("edgeSwipeDuration").MustDuration(d.ADB.EdgeSwipeDuration)
	s.ADB.EdgeSettle = section.Key("edgeSettle").MustDuration(d.ADB.EdgeSettle)

	section = cfg.Section("Chrome")
	s.Chrome.URL = section.Key("url").MustString(d.Chrome.URL)
	s.Chrome.ExecPath = section.Key("execPath").MustString(d.Chrome.ExecPath)
	s.Chrome.Width = section.Key("width").MustInt(d.Chrome.Width)
	s.Chrome.Height = section.Key("height").MustInt(d.Chrome.Height)
	s.Chrome.DPR = section.Key("dpr").MustFloat64(d.Chrome.DPR)
	s.Chrome.Mobile = section.Key("mobile").MustBool(d.Chrome.Mobile)
	s.Chrome.UserAgent = section.Key("userAgent").MustString(d.Chrome.UserAgent)
	s.Chrome.Headless = section.Key("headless").MustBool(d.Chrome.Headless)
	s.Chrome.LoadWait = section.Key("loadWait").MustDuration(d.Chrome.LoadWait)

	section = cfg.Section("Diagnostics")
	s.Diagnostics.Dir = section.Key("dir").MustString(d.Diagnostics.Dir)
	s.Diagnostics.Database = section.Key("database").MustString(d.Diagnostics.Database)
	s.Diagnostics.StoreArtifacts = section.Key("storeArtifacts").MustBool(d.Diagnostics.StoreArtifacts)

	section = cfg.Section("Logging")
	s.Logging.Level = section.Key("level").MustString(d.Logging.Level)
	s.Logging.Dir = section.Key("dir").MustString(d.Logging.Dir)

	return s, nil
}

// SaveToINI saves configuration to an INI file
func SaveToINI(s *Settings, path string) error {
	cfg := ini.Empty()

	section := cfg.Section("Stitch")
	section.Key("cutFraction").SetValue(fmt.Sprintf("%g", s.Stitch.CutFraction))
	section.Key("swipeLimit").SetValue(fmt.Sprintf("%d", s.Stitch.SwipeLimit))
	section.Key("stabilizationDuration").SetValue(s.Stitch.StabilizationDuration.String())
	section.Key("matchScoreThreshold").SetValue(fmt.Sprintf("%g", s.Stitch.MatchScoreThreshold))
	section.Key("frameShift").SetValue(fmt.Sprintf("%d", s.Stitch.FrameShift))
	section.Key("swipeDivider").SetValue(fmt.Sprintf("%d", s.Stitch.SwipeDivider))
	section.Key("swipeDuration").SetValue(s.Stitch.SwipeDuration.String())
	section.Key("resetTimeout").SetValue(s.Stitch.ResetTimeout.String())

	section = cfg.Section("Surface")
	section.Key("kind").SetValue(s.Surface.Kind)

	section = cfg.Section("ADB")
	section.Key("path").SetValue(s.ADB.Path)
	section.Key("device").SetValue(s.ADB.Device)
	section.Key("maxEdgeSwipes").SetValue(fmt.Sprintf("%d", s.ADB.MaxEdgeSwipes))
	section.Key("edgeSwipeDuration").SetValue(s.ADB.EdgeSwipeDuration.String())
	section.Key("edgeSettle").SetValue(s.ADB.EdgeSettle.String())

	section = cfg.Section("Chrome")
	section.Key("url").SetValue(s.Chrome.URL)
	section.Key("execPath").SetValue(s.Chrome.ExecPath)
	section.Key("width").SetValue(fmt.Sprintf("%d", s.Chrome.Width))
	section.Key("height").SetValue(fmt.Sprintf("%d", s.Chrome.Height))
	section.Key("dpr").SetValue(fmt.Sprintf("%g", s.Chrome.DPR))
	section.Key("mobile").SetValue(fmt.Sprintf("%t", s.Chrome.Mobile))
	section.Key("userAgent").SetValue(s.Chrome.UserAgent)
	section.Key("headless").SetValue(fmt.Sprintf("%t", s.Chrome.Headless))
	section.Key("loadWait").SetValue(s.Chrome.LoadWait.String())

	section = cfg.Section("Diagnostics")
	section.Key("dir").SetValue(s.Diagnostics.Dir)
	section.Key("database").SetValue(s.Diagnostics.Database)
	section.Key("storeArtifacts").SetValue(fmt.Sprintf("%t", s.Diagnostics.StoreArtifacts))

	section = cfg.Section("Logging")
	section.Key("level").SetValue(s.Logging.Level)
	section.Key("dir").SetValue(s.Logging.Dir)

	return cfg.SaveTo(path)
}

// LoadFromYAML loads configuration from a YAML file. Missing keys keep their defaults.
func LoadFromYAML(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	s := NewDefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return s, nil
}

// SaveToYAML saves configuration to a YAML file
func SaveToYAML(s *Settings, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
