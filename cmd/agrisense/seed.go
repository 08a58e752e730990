package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Apply a seed file of vocabularies, experts, templates and farms",
		Long: "Apply a seed file through the same checks as live requests. " +
			"Entries that already exist are skipped, so a file can be applied repeatedly.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			svc, err := newService(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if svc.cfg.Store.Driver == "memory" {
				svc.logger.Warn("seeding the memory store; nothing persists after exit")
			}

			report, err := svc.seed(ctx, file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d terms, %d experts, %d templates, %d farms\n",
				report.Terms, report.Experts, report.Templates, report.Farms)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
