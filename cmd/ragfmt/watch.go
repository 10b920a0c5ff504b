package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hupe1980/ragfmt"
	"github.com/hupe1980/ragfmt/archive"
	"github.com/hupe1980/ragfmt/codec"
	"github.com/hupe1980/ragfmt/internal/watch"
	ragprom "github.com/hupe1980/ragfmt/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// envelopeMarker tags output files so a watcher on the same directory skips them.
const envelopeMarker = ".envelope"

func newWatchCmd(a *app) *cobra.Command {
	var (
		flags       normalizeFlags
		outDir      string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Normalize raw result files as they appear in a directory",
		Long: `Watches a directory and normalizes every created or modified *.json raw result
file, writing <name>.envelope.<ext> to the output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if outDir == "" {
				outDir = dir
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var extra []ragfmt.Option
			var archiveOpts []func(*archive.Options)
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				mc, err := ragprom.NewCollector(reg)
				if err != nil {
					return err
				}
				extra = append(extra, ragfmt.WithMetricsCollector(mc))
				archiveOpts = append(archiveOpts, func(o *archive.Options) { o.Metrics = mc })
				srv := serveMetrics(metricsAddr, reg, a.logger)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			n, err := a.newNormalizer(cmd, &flags, extra...)
			if err != nil {
				return err
			}

			p := &processor{app: a, norm: n, outDir: outDir}
			if flags.archive {
				archiveOpts = append(archiveOpts, func(o *archive.Options) { o.Logger = a.logger })
				arc, closeFn, err := openArchive(ctx, a.cfg.Archive, archiveOpts...)
				if err != nil {
					return err
				}
				defer func() { _ = closeFn() }()
				p.archive = arc
			}

			return p.watch(ctx, dir, cmd)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default: the watched directory)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :2112)")
	return cmd
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *ragfmt.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return srv
}

// processor normalizes single raw result files.
type processor struct {
	app     *app
	norm    *normalizer
	archive *archive.Archive
	outDir  string
}

func (p *processor) watch(ctx context.Context, dir string, cmd *cobra.Command) error {
	w, err := watch.New(".json")
	if err != nil {
		return err
	}
	defer w.Close()

	events, err := w.Watch(ctx, dir)
	if err != nil {
		return err
	}
	p.app.logger.InfoContext(ctx, "watching", "dir", dir, "out", p.outDir)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.app.cfg.Normalize.Concurrency, 1))

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case err := <-w.Errors():
			p.app.logger.WarnContext(ctx, "watch error", "error", err)
		case ev, ok := <-events:
			if !ok {
				return g.Wait()
			}
			if isEnvelopeFile(ev.Path) {
				continue
			}
			g.Go(func() error {
				env, key, out, err := p.process(gctx, ev.Path)
				if err != nil {
					// A file may still be mid-write; the next write event retries it.
					p.app.logger.WarnContext(gctx, "normalize file failed", "path", ev.Path, "op", ev.Op.String(), "error", err)
					return nil
				}
				p.app.logger.InfoContext(gctx, "normalized file", "path", ev.Path, "out", out)
				if !p.app.quiet {
					printSummary(cmd.ErrOrStderr(), env, key)
				}
				return nil
			})
		}
	}
}

// process normalizes one file and returns the envelope, the archive key (if
// archiving) and the output path.
func (p *processor) process(ctx context.Context, path string) (*ragfmt.Envelope, string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", "", err
	}
	env, encoded, err := p.norm.run(data)
	if err != nil {
		return nil, "", "", err
	}

	out := outputPath(p.outDir, path, p.norm.out)
	if err := os.WriteFile(out, encoded, 0o644); err != nil {
		return nil, "", "", err
	}

	key := ""
	if p.archive != nil {
		key, err = p.archive.Put(ctx, env)
		if err != nil {
			return nil, "", "", fmt.Errorf("archive: %w", err)
		}
	}
	return env, key, out, nil
}

func isEnvelopeFile(path string) bool {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.HasSuffix(base, envelopeMarker)
}

func outputPath(outDir, inPath string, c codec.Codec) string {
	ext := ".json"
	if _, ok := c.(codec.Indenter); !ok {
		ext = "." + c.Name()
	}
	base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	return filepath.Join(outDir, base+envelopeMarker+ext)
}
