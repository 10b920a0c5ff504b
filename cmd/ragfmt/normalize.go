package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/ragfmt"
	"github.com/hupe1980/ragfmt/archive"
	"github.com/hupe1980/ragfmt/codec"
	"github.com/spf13/cobra"
)

// normalizeFlags are shared by normalize and watch. Unset flags fall back
// to the [normalize] and [output] configuration.
type normalizeFlags struct {
	queryMode    string
	extraFields  []string
	keywordsHigh []string
	keywordsLow  []string
	inputCodec   string
	outputCodec  string
	pretty       bool
	archive      bool
}

func (f *normalizeFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.queryMode, "mode", "", "query mode recorded in the envelope (overrides the document)")
	fl.StringSliceVar(&f.extraFields, "extra-fields", nil, "extra chunk fields to project, in order")
	fl.StringSliceVar(&f.keywordsHigh, "keywords-high", nil, "high-level query keywords")
	fl.StringSliceVar(&f.keywordsLow, "keywords-low", nil, "low-level query keywords")
	fl.StringVar(&f.inputCodec, "input-codec", "json", "codec of the raw result input")
	fl.StringVar(&f.outputCodec, "codec", "", "output codec (json|go-json|msgpack)")
	fl.BoolVar(&f.pretty, "pretty", false, "indent JSON output")
	fl.BoolVar(&f.archive, "archive", false, "also store the envelope in the configured archive")
}

// normalizer is the resolved normalization pipeline.
type normalizer struct {
	in     codec.Codec
	out    codec.Codec
	pretty bool
	opts   []ragfmt.Option
}

func (a *app) newNormalizer(cmd *cobra.Command, f *normalizeFlags, extra ...ragfmt.Option) (*normalizer, error) {
	cfg := a.cfg.Normalize
	changed := cmd.Flags().Changed

	if changed("mode") {
		cfg.QueryMode = f.queryMode
	}
	if changed("extra-fields") {
		cfg.ExtraChunkFields = f.extraFields
	}
	if changed("keywords-high") {
		cfg.KeywordsHigh = f.keywordsHigh
	}
	if changed("keywords-low") {
		cfg.KeywordsLow = f.keywordsLow
	}

	outName := a.cfg.Output.Codec
	if changed("codec") {
		outName = f.outputCodec
	}
	out, ok := codec.ByName(outName)
	if !ok {
		return nil, fmt.Errorf("unknown output codec %q (want one of %v)", outName, codec.Names())
	}
	in, ok := codec.ByName(f.inputCodec)
	if !ok {
		return nil, fmt.Errorf("unknown input codec %q (want one of %v)", f.inputCodec, codec.Names())
	}

	opts := []ragfmt.Option{
		ragfmt.WithExtraChunkFields(cfg.ExtraChunkFields...),
		ragfmt.WithQueryMode(cfg.QueryMode),
		ragfmt.WithConcurrency(cfg.Concurrency),
		ragfmt.WithLogger(a.logger),
	}
	if len(cfg.KeywordsHigh) > 0 || len(cfg.KeywordsLow) > 0 {
		opts = append(opts, ragfmt.WithKeywords(cfg.KeywordsHigh, cfg.KeywordsLow))
	}
	opts = append(opts, extra...)

	pretty := a.cfg.Output.Pretty
	if changed("pretty") {
		pretty = f.pretty
	}

	return &normalizer{
		in:     in,
		out:    out,
		pretty: pretty,
		opts:   opts,
	}, nil
}

// run decodes a raw result and returns the envelope and its encoding.
func (n *normalizer) run(data []byte) (*ragfmt.Envelope, []byte, error) {
	raw, err := ragfmt.DecodeRawResult(data, n.in)
	if err != nil {
		return nil, nil, err
	}
	env, err := raw.Normalize(n.opts...)
	if err != nil {
		return nil, nil, err
	}

	var b []byte
	if n.pretty {
		b, err = codec.MarshalPretty(n.out, env)
	} else {
		b, err = n.out.Marshal(env)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("encode envelope: %w", err)
	}
	return env, b, nil
}

func newNormalizeCmd(a *app) *cobra.Command {
	var (
		flags  normalizeFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "normalize [file|-]",
		Short: "Normalize a raw retrieval result",
		Long: `Reads a raw retrieval result document (entities_context, relations_context,
chunks, references, query_mode) from a file or stdin and writes the envelope.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			n, err := a.newNormalizer(cmd, &flags)
			if err != nil {
				return err
			}
			env, encoded, err := n.run(data)
			if err != nil {
				return err
			}

			if output != "" {
				if err := os.WriteFile(output, encoded, 0o644); err != nil {
					return err
				}
			} else {
				if err := writeLine(cmd.OutOrStdout(), encoded, n.out); err != nil {
					return err
				}
			}

			key := ""
			if flags.archive {
				key, err = a.archiveEnvelope(cmd.Context(), env)
				if err != nil {
					return err
				}
			}

			if !a.quiet {
				printSummary(cmd.ErrOrStderr(), env, key)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the envelope to a file instead of stdout")
	return cmd
}

func (a *app) archiveEnvelope(ctx context.Context, env *ragfmt.Envelope) (string, error) {
	arc, closeFn, err := openArchive(ctx, a.cfg.Archive, func(o *archive.Options) {
		o.Logger = a.logger
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = closeFn() }()
	return arc.Put(ctx, env)
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(args[0])
}

// writeLine writes b, adding a trailing newline for text codecs.
func writeLine(w io.Writer, b []byte, c codec.Codec) error {
	if _, err := w.Write(b); err != nil {
		return err
	}
	if _, ok := c.(codec.Indenter); ok {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}
