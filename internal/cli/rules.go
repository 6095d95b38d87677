package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbenjam1n/validb/internal/rule"
)

func newRulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rules in execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			defer cfg.DataSources.Close()

			ordered := rule.SortByLevel(cfg.Rules)
			fmt.Fprintf(a.out, "Rules (%d):\n", len(ordered))
			for _, r := range ordered {
				fmt.Fprintf(a.out, "  [%d] %s  type=%s datasource=%s\n",
					r.Level(), rule.Describe(r), r.DetectionType(), r.DataSourceName())
				if embedders := r.Embedders(); len(embedders) > 0 {
					fmt.Fprintf(a.out, "      embedders: %v\n", embedders)
				}
			}
			return nil
		},
	}
}
