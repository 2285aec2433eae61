package main

import (
	"fmt"
	"strings"

	"github.com/joeycumines/arbor/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show configuration options and the resolved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			s := config.DefaultSchema()
			_, _ = fmt.Fprint(out, s.FormatHelp())

			_, _ = fmt.Fprintln(out, "\nResolved:")
			for _, section := range append([]string{""}, s.Sections()...) {
				for _, opt := range s.Options(section) {
					key := opt.Key
					if section != "" {
						key = section + "." + key
					}
					value := s.Resolve(a.cfg, section, opt.Key)
					if strings.Contains(opt.Key, "password") && value != "" {
						value = "********"
					}
					_, _ = fmt.Fprintf(out, "  %s = %s\n", key, value)
				}
			}
			if a.cfg.HasWarnings() {
				_, _ = fmt.Fprintln(out, "\nWarnings:")
				for _, w := range a.cfg.Warnings {
					_, _ = fmt.Fprintf(out, "  %s\n", w)
				}
			}
			return nil
		},
	}
}
