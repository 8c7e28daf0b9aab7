package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tuannm99/x2sys/internal"
	"github.com/tuannm99/x2sys/internal/alias/util"
	"github.com/tuannm99/x2sys/internal/geo"
	"github.com/tuannm99/x2sys/internal/logging"
	"github.com/tuannm99/x2sys/internal/metrics"
	"github.com/tuannm99/x2sys/internal/mggpath"
	"github.com/tuannm99/x2sys/internal/output"
	"github.com/tuannm99/x2sys/internal/record"
	"github.com/tuannm99/x2sys/internal/track"
)

var errUsage = errors.New("x2sys: usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			slog.Error("x2sys: aborted", "err", err)
		}
		os.Exit(1)
	}
}

type cliFlags struct {
	config   string
	def      string
	home     string
	list     string
	fields   string
	out      string
	dist     string
	binary   bool
	compress bool
}

func parseFlags(args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("x2sys", flag.ContinueOnError)
	f := &cliFlags{}
	fs.StringVar(&f.config, "config", "", "YAML config file")
	fs.StringVar(&f.def, "D", "", "data definition name, e.g. gmt, mgd77 or <name> for <home>/<name>.def")
	fs.StringVar(&f.home, "home", "", "definitions directory (overrides config and X2SYS_HOME)")
	fs.StringVar(&f.list, "L", "", "file listing track names, one per line")
	fs.StringVar(&f.fields, "F", "", "comma-separated output columns")
	fs.StringVar(&f.out, "o", "", "output file (default stdout)")
	fs.StringVar(&f.dist, "dist", "", "distance mode reported per track: cartesian, flat-earth or great-circle")
	fs.BoolVar(&f.binary, "b", false, "binary output")
	fs.BoolVar(&f.compress, "z", false, "lz4-compress the output")
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if f.def == "" {
		fs.Usage()
		return nil, nil, fmt.Errorf("%w: -D is required", errUsage)
	}
	return f, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	f, names, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := internal.LoadConfig(f.config)
	if err != nil {
		return err
	}
	if f.home != "" {
		cfg.Home = f.home
	}
	if f.fields != "" {
		cfg.Output.Fields = f.fields
	}
	if f.dist != "" {
		cfg.Distance.Mode = f.dist
	}
	cfg.Output.Binary = cfg.Output.Binary || f.binary
	cfg.Output.Compress = cfg.Output.Compress || f.compress

	log := logging.Install(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	mode, err := geo.ParseMode(cfg.Distance.Mode)
	if err != nil {
		return err
	}

	home, err := internal.NewHomeResolver(cfg).CheckHome()
	if err != nil {
		return err
	}
	schema, err := record.NewCatalog(home).Load(f.def)
	if err != nil {
		return err
	}
	sel, err := output.Select(schema, cfg.Output.Fields)
	if err != nil {
		return err
	}

	if f.list != "" {
		listed, err := track.ReadList(f.list)
		if err != nil {
			return err
		}
		names = append(names, listed...)
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: no tracks given", errUsage)
	}

	lookup := mggpath.NewDirs()
	if cfg.MGG.PathsFile != "" {
		if lookup, err = mggpath.Load(cfg.MGG.PathsFile); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}
	reader, err := track.ReaderFor(schema, lookup, track.Options{
		Logger:          log,
		Metrics:         m,
		InitialCapacity: cfg.Read.InitialCapacity,
		DefaultYear:     cfg.Read.DefaultYear,
	})
	if err != nil {
		return err
	}

	dst, closeOut, err := openOutput(f.out, stdout)
	if err != nil {
		return err
	}
	w := output.NewWriter(dst, sel, output.Options{Binary: cfg.Output.Binary, Compress: cfg.Output.Compress})

	for _, name := range names {
		t, err := reader.ReadFile(ctx, name)
		if err != nil {
			_ = closeOut()
			return err
		}
		if t.Diagnostics != nil {
			log.WarnContext(ctx, "x2sys: track read with problems", "track", t.Name, "err", t.Diagnostics)
		}
		if err := report(ctx, log, schema, t, mode); err != nil {
			_ = closeOut()
			return err
		}
		if err := w.WriteTrack(t); err != nil {
			_ = closeOut()
			return err
		}
	}
	if err := w.Close(); err != nil {
		_ = closeOut()
		return err
	}
	logCounters(ctx, log, reg)
	return closeOut()
}

func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := util.CreateFile(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() error { return util.CloseFile(path, f) }, nil
}

// report logs the along-track length of t when the schema names both
// coordinate columns.
func report(ctx context.Context, log *slog.Logger, s *record.Schema, t *track.Track, mode geo.Mode) error {
	attrs := []any{"track", t.Name, "year", t.Year, "rows", t.NumRows()}
	if s.XCol >= 0 && s.YCol >= 0 && s.XCol < len(t.Columns) && s.YCol < len(t.Columns) {
		d, err := geo.Distances(t.Columns[s.XCol], t.Columns[s.YCol], mode)
		if err != nil {
			return err
		}
		if n := len(d); n > 0 {
			attrs = append(attrs, "length", d[n-1], "mode", mode.String())
		}
	}
	log.InfoContext(ctx, "x2sys: track read", attrs...)
	return nil
}

func logCounters(ctx context.Context, log *slog.Logger, g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		log.WarnContext(ctx, "x2sys: gather metrics", "err", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []any{"metric", mf.GetName(), "value", m.GetCounter().GetValue()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			log.DebugContext(ctx, "x2sys: counter", attrs...)
		}
	}
}
