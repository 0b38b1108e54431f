// Command appimage-finder scans GH Archive hours for AppImage releases and
// writes deduplicated results as JSON or CSV files
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"appimagefinder/internal/adapters/output"
	"appimagefinder/internal/core/timerange"
	"appimagefinder/internal/modkit"
	"appimagefinder/internal/platform/config"
	perr "appimagefinder/internal/platform/errors"
	"appimagefinder/internal/platform/logger"

	findermod "appimagefinder/internal/services/finder/module"

	"github.com/spf13/pflag"
)

func main() {
	loaded, envErr := config.LoadDotEnv()
	l := logger.Get()
	for _, f := range loaded {
		l.Debug().Str("file", f).Msg("loaded env file")
	}
	if envErr != nil {
		l.Warn().Err(envErr).Msg("env file not loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		l.Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("appimage-finder failed")
		stop()
		os.Exit(1)
	}
}

// run parses args, runs one scan, and writes the output files
func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := pflag.NewFlagSet("appimage-finder", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		fStart     = fs.String("start-time", "", "start of the range: yyyy, yyyy-mm, yyyy-mm-dd or yyyy-mm-dd-hh (UTC)")
		fEnd       = fs.String("end-time", "", "end of the range, inclusive, expanded to the end of its period")
		fFormat    = fs.String("format", string(output.JSON), "output format: json or csv")
		fPrefix    = fs.String("output", "appimages", "output file prefix")
		fChecksums = fs.Bool("include-checksums", false, "also keep checksum files that pair with an AppImage")
		fArch      = fs.String("arch", "", "architecture filter: x86_64, aarch64 or all (default all)")
		fCacheDir  = fs.String("cache-dir", "", "directory for downloaded hour files (default gharchive_tmp)")
		fOutDir    = fs.String("out-dir", ".", "directory for output files")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return perr.InvalidArgf("unexpected argument %q", fs.Arg(0))
	}
	if *fStart == "" {
		return perr.WithField(perr.InvalidArgf("--start-time is required"), "start-time")
	}
	if *fEnd == "" {
		return perr.WithField(perr.InvalidArgf("--end-time is required"), "end-time")
	}

	format, err := output.ParseFormat(*fFormat)
	if err != nil {
		return err
	}
	w, err := timerange.Resolve(*fStart, *fEnd)
	if err != nil {
		return err
	}

	// flags override env; modules read their options from config
	root := config.New()
	root.Prefix("CORE_FINDER_").Set("ARCH", *fArch)
	if fs.Changed("include-checksums") {
		root.Prefix("CORE_FINDER_").Set("INCLUDE_CHECKSUMS", strconv.FormatBool(*fChecksums))
	}
	root.Prefix("CORE_INGEST_").Set("CACHE_DIR", *fCacheDir)

	deps := modkit.Deps{Cfg: root, Log: *logger.Named("cli")}
	finder, err := findermod.New(deps)
	if err != nil {
		return err
	}

	scan := finder.DefaultScan(w)
	deps.Log.Info().
		Time("start", w.Start).
		Time("end", w.End).
		Int("hours", w.Hours()).
		Str("arch", string(scan.Mode)).
		Bool("checksums", scan.IncludeChecksums).
		Msg("scan start")

	releases, err := finder.Runner().RunRange(ctx, scan)
	if err != nil {
		return err
	}
	if len(releases) == 0 {
		deps.Log.Info().Msg("no AppImage releases found")
		return nil
	}

	paths, err := output.Write(*fOutDir, *fPrefix, format, scan.Mode, releases)
	if err != nil {
		return err
	}
	deps.Log.Info().Int("releases", len(releases)).Strs("files", paths).Msg("results written")
	return nil
}
