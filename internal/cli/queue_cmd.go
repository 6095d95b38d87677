package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbenjam1n/validb/internal/errs"
	"github.com/sbenjam1n/validb/internal/publish"
)

func newQueueCmd(a *app) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the detection stream",
	}
	queueCmd.PersistentFlags().StringP("datasource", "d", "", "Redis data source holding the stream (default $VALIDB_PUBLISH)")

	queueCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the number of detection messages in Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPublisher(cmd, func(p *publish.Publisher) error {
				n, err := p.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Queue Status:\n")
				fmt.Fprintf(a.out, "  %s: %d messages\n", p.Stream(), n)
				return nil
			})
		},
	})

	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the newest detection messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt64("count")
			return a.withPublisher(cmd, func(p *publish.Publisher) error {
				entries, err := p.Tail(cmd.Context(), count)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(a.out, "  (none)")
				}
				for _, e := range entries {
					fmt.Fprintf(a.out, "  %s  run=%s [%d] %s %s: %s\n",
						e.StreamID, e.RunID, e.Level, e.DetectionType, e.ID, e.Message.Message)
				}
				return nil
			})
		},
	}
	tailCmd.Flags().Int64P("count", "n", 10, "number of messages")
	queueCmd.AddCommand(tailCmd)

	return queueCmd
}

func (a *app) withPublisher(cmd *cobra.Command, fn func(*publish.Publisher) error) error {
	name, _ := cmd.Flags().GetString("datasource")
	if name == "" {
		name = a.settings.Publish
	}
	if name == "" {
		return errs.NewConfigError("datasource", fmt.Errorf("no Redis data source given; use --datasource or VALIDB_PUBLISH"))
	}

	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	defer cfg.DataSources.Close()

	src, err := redisSourceOf(cfg, name)
	if err != nil {
		return err
	}
	if err := src.Open(cmd.Context()); err != nil {
		return &errs.DataAccessError{DataSource: name, Err: err}
	}
	if err := fn(publish.New(src.Client(), publish.WithStream(a.settings.Stream))); err != nil {
		return &errs.DataAccessError{DataSource: name, Err: err}
	}
	return nil
}
