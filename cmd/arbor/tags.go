package main

import (
	"fmt"
	"text/tabwriter"
	"unicode"
	"unicode/utf8"

	"github.com/joeycumines/arbor/internal/builder"
	"github.com/spf13/cobra"
)

func newTagsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List the node tags available to tree definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := builder.DefaultRegistry()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, tag := range r.Tags() {
				if !all && !isPrimary(tag) {
					continue
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\n", tag, r.Describe(tag))
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\n", builder.IncludeTag, "Splices the tree definition stored at path.")
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include qualified and snake_case aliases")
	return cmd
}

// isPrimary reports whether tag is a CamelCase name rather than one of its
// bt. or snake_case aliases.
func isPrimary(tag string) bool {
	r, _ := utf8.DecodeRuneInString(tag)
	return unicode.IsUpper(r)
}
