package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/hupe1980/ragfmt/archive"
	"github.com/hupe1980/ragfmt/codec"
	"github.com/spf13/cobra"
)

func newArchiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived envelopes",
	}
	cmd.AddCommand(newArchiveListCmd(a))
	cmd.AddCommand(newArchiveGetCmd(a))
	cmd.AddCommand(newArchiveEntriesCmd(a))
	cmd.AddCommand(newArchiveDeleteCmd(a))
	return cmd
}

// withArchive opens the configured archive for the duration of fn.
func (a *app) withArchive(cmd *cobra.Command, fn func(*archive.Archive) error) error {
	arc, closeFn, err := openArchive(cmd.Context(), a.cfg.Archive, func(o *archive.Options) {
		o.Logger = a.logger
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()
	return fn(arc)
}

func newArchiveListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query-mode]",
		Short: "List archived envelope keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := ""
			if len(args) == 1 {
				mode = args[0]
			}
			return a.withArchive(cmd, func(arc *archive.Archive) error {
				keys, err := arc.List(cmd.Context(), mode)
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			})
		},
	}
}

func newArchiveGetCmd(a *app) *cobra.Command {
	var (
		codecName string
		pretty    bool
	)
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print an archived envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.cfg.Output.Codec
			if cmd.Flags().Changed("codec") {
				name = codecName
			}
			c, ok := codec.ByName(name)
			if !ok {
				return fmt.Errorf("unknown output codec %q (want one of %v)", name, codec.Names())
			}
			return a.withArchive(cmd, func(arc *archive.Archive) error {
				env, err := arc.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				var b []byte
				if pretty || a.cfg.Output.Pretty {
					b, err = codec.MarshalPretty(c, env)
				} else {
					b, err = c.Marshal(env)
				}
				if err != nil {
					return err
				}
				return writeLine(cmd.OutOrStdout(), b, c)
			})
		},
	}
	cmd.Flags().StringVar(&codecName, "codec", "", "output codec (json|go-json|msgpack)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}

func newArchiveEntriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entries <query-mode>",
		Short: "Show catalog entries for a query mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(cmd, func(arc *archive.Archive) error {
				entries, err := arc.Entries(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if entries == nil {
					return fmt.Errorf("backend %q has no catalog", a.cfg.Archive.Backend)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tCHUNKS\tENTITIES\tRELATIONS\tREFERENCES\tBYTES\tCREATED")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
						e.Key, e.Chunks, e.Entities, e.Relations, e.References, e.Size, e.CreatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
}

func newArchiveDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>...",
		Short: "Delete archived envelopes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(cmd, func(arc *archive.Archive) error {
				for _, key := range args {
					if err := arc.Delete(cmd.Context(), key); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
