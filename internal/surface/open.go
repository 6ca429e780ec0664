package surface

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Backend kinds accepted by Open
const (
	KindADB    = "adb"
	KindChrome = "chrome"
)

// Config selects and configures a backend
type Config struct {
	Kind   string
	ADB    ADBOptions
	Chrome ChromeOptions
}

// Session is an open surface that holds a device connection or browser
type Session interface {
	Surface
	io.Closer
}

// Open connects the backend named by cfg.Kind
func Open(ctx context.Context, cfg Config) (Session, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindADB:
		return OpenADB(ctx, cfg.ADB)
	case KindChrome:
		return OpenChrome(ctx, cfg.Chrome)
	default:
		return nil, fmt.Errorf("unknown surface kind %q (want %s or %s)", cfg.Kind, KindADB, KindChrome)
	}
}
