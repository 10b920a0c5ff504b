package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/hupe1980/ragfmt/codec"
	"github.com/hupe1980/ragfmt/internal/version"
	"github.com/spf13/cobra"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
}

func newVersionCmd(_ *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload := versionPayload{
				Tool:      "ragfmt",
				Version:   version.Version,
				GitCommit: version.GitCommit,
				BuildDate: version.BuildDate,
				GoVersion: runtime.Version(),
			}

			w := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "json":
				b, err := codec.MarshalPretty(codec.JSON{}, payload)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, string(b))
				return err
			case "pretty":
				fmt.Fprintf(w, "ragfmt %s\n", modeColor.Sprint(payload.Version))
				if payload.GitCommit != "" {
					fmt.Fprintf(w, "commit: %s\n", payload.GitCommit)
				}
				if payload.BuildDate != "" {
					fmt.Fprintf(w, "built:  %s\n", payload.BuildDate)
				}
				fmt.Fprintf(w, "go:     %s\n", payload.GoVersion)
				return nil
			default:
				return fmt.Errorf("unknown format %q (want pretty|json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "output format (pretty|json)")
	return cmd
}
