package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jordanella.com/pagestitch/internal/config"
)

var (
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow, color.Bold)
	colorRed    = color.New(color.FgRed, color.Bold)
	colorCyan   = color.New(color.FgCyan)
)

// loadSettings reads path, or returns defaults when path is empty
func loadSettings(path string) (*config.Settings, error) {
	if path == "" {
		return config.NewDefaultSettings(), nil
	}
	return config.Load(path)
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "fullpage",
		Short: "Capture full-page screenshots of scrollable device and browser screens",
		Long: `fullpage scrolls an Android device (over adb) or a headless Chrome page,
captures each viewport and stitches the overlapping captures into one image.
Failed runs keep their diagnostic images in the run store.`,
		// Errors are reported by the commands themselves
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file (.ini or .yaml), defaults apply when omitted")

	settings := func() (*config.Settings, error) {
		return loadSettings(configPath)
	}

	rootCmd.AddCommand(newCaptureCmd(settings))
	rootCmd.AddCommand(newRunsCmd(settings))
	rootCmd.AddCommand(newArtifactsCmd(settings))
	rootCmd.AddCommand(newInitCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}
