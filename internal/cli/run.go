package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sbenjam1n/validb/internal/config"
	"github.com/sbenjam1n/validb/internal/datasource"
	"github.com/sbenjam1n/validb/internal/detection"
	"github.com/sbenjam1n/validb/internal/errs"
	"github.com/sbenjam1n/validb/internal/mapping"
	"github.com/sbenjam1n/validb/internal/publish"
	"github.com/sbenjam1n/validb/internal/validator"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the rules and report detections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			destCSV, _ := cmd.Flags().GetString("dest-csv")
			publishTo, _ := cmd.Flags().GetString("publish")
			if !cmd.Flags().Changed("publish") {
				publishTo = a.settings.Publish
			}
			limit := a.settings.MaxDetection
			if cmd.Flags().Changed("max-detection") {
				n, _ := cmd.Flags().GetInt("max-detection")
				limit = detection.MaxDetections(n)
			}

			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			defer cfg.DataSources.Close()

			var redisSource *datasource.Redis
			if publishTo != "" {
				if redisSource, err = redisSourceOf(cfg, publishTo); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			if err := cfg.DataSources.OpenOnly(ctx, usedSources(cfg, publishTo)...); err != nil {
				return &errs.DataAccessError{Err: err}
			}

			runID := publish.NewRunID()
			v := validator.New(cfg.DataSources,
				validator.WithEmbedders(cfg.Embedders),
				validator.WithLimit(limit),
				validator.WithLogger(a.logger.Named("validator").With("run_id", runID)),
			)
			res, err := v.Validate(ctx, cfg.Rules)
			if err != nil {
				return err
			}

			data := res.Data
			fmt.Fprintf(a.out, "Detected: %d\n", data.Count())
			if data.TooManyDetection() {
				fmt.Fprintf(a.out, "Warning: detection limit %s reached, %d rule(s) skipped\n", limit, len(res.Skipped))
			}
			if data.Count() == 0 {
				return nil
			}

			if destCSV != "" {
				if err := writeCSV(destCSV, cfg.Detected(), data.Values()); err != nil {
					return err
				}
				a.logger.Info("detections written", "path", destCSV, "detections", data.Count())
			}
			if redisSource != nil {
				if err := a.publish(ctx, redisSource, publishTo, runID, data); err != nil {
					return err
				}
			}
			return &ExitError{Code: ExitDetected}
		},
	}
	cmd.Flags().StringP("dest-csv", "D", "", "write detections to this CSV file")
	cmd.Flags().IntP("max-detection", "m", 0, "stop after this many detections (default $VALIDB_MAX_DETECTION or unlimited)")
	cmd.Flags().String("publish", "", "Redis data source to stream detections to (default $VALIDB_PUBLISH)")
	return cmd
}

func writeCSV(path string, m mapping.OutputMapper, dets []*detection.Detection) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := mapping.WriteCSV(f, m, dets); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func (a *app) publish(ctx context.Context, src *datasource.Redis, name, runID string, data *detection.Data) error {
	p := publish.New(src.Client(), publish.WithStream(a.settings.Stream))
	n, err := p.Push(ctx, runID, data.Values(), data.TooManyDetection())
	if err != nil {
		return &errs.DataAccessError{DataSource: name, Err: err}
	}
	a.logger.Info("detections published", "stream", p.Stream(), "messages", n, "run_id", runID)
	return nil
}

// usedSources names the data sources the rules query, plus the publish target.
func usedSources(cfg *config.Config, publishTo string) []string {
	var names []string
	for _, r := range cfg.Rules {
		names = append(names, r.DataSourceName())
	}
	if publishTo != "" {
		names = append(names, publishTo)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// redisSourceOf returns the Redis data source called name.
func redisSourceOf(cfg *config.Config, name string) (*datasource.Redis, error) {
	src, err := cfg.DataSources.Get(name)
	if err != nil {
		return nil, errs.NewConfigError("datasources."+name, err)
	}
	r, ok := src.(*datasource.Redis)
	if !ok {
		return nil, errs.NewConfigError("datasources."+name, fmt.Errorf("%T is not a Redis data source", src))
	}
	return r, nil
}
