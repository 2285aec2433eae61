package main

import (
	"fmt"

	"github.com/joeycumines/arbor/internal/bt"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		ticks  int
		seed   uint64
	)
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Build a tree, optionally tick it, and print its exported state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.builder()
			if err != nil {
				return err
			}
			root, err := b.BuildFile(args[0])
			if err != nil {
				return err
			}
			opts := []bt.ContextOption{bt.WithLogger(a.logger), bt.WithOutput(cmd.ErrOrStderr())}
			if seed != 0 {
				opts = append(opts, bt.WithSeed(seed))
			}
			tree := bt.NewTree(root, bt.WithContext(bt.NewContext(opts...)))
			if err := tree.Setup(bt.SetupOptions{Loader: b}); err != nil {
				return err
			}
			for range ticks {
				if _, err := tree.Tick(); err != nil {
					return err
				}
			}
			data, err := encode("."+format, root)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, xml")
	cmd.Flags().IntVar(&ticks, "ticks", 0, "Tick the tree this many times before exporting")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 = random)")
	return cmd
}
