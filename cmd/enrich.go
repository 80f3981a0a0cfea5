package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/enrich"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/pkg/enrichapi"
)

var (
	enrichInput   string
	enrichOutput  string
	enrichSession string
)

// prospectFile is the YAML shape shared with the generate command; enrich
// only needs the prospect list.
type prospectFile struct {
	Prospects []model.Prospect `yaml:"prospects"`
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Poll for webhook-delivered phone enrichment and merge it in",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Enrich.BaseURL == "" {
			return eris.New("enrich.base_url is required")
		}

		prospects, err := loadProspects(enrichInput)
		if err != nil {
			return err
		}

		session := enrichSession
		if session == "" {
			session = uuid.NewString()
		}

		output := enrichOutput
		if output == "" {
			output = enrichInput
		}

		log := zap.L().With(zap.String("session", session))
		log.Info("starting enrichment poll",
			zap.Int("prospects", len(prospects)),
			zap.String("endpoint", cfg.Enrich.BaseURL),
		)

		donec := make(chan enrich.State, 1)
		poller := enrich.Start(ctx,
			enrichapi.NewClient(cfg.Enrich.BaseURL),
			session,
			prospects,
			func(updated []model.Prospect) {
				if err := writeProspects(output, updated); err != nil {
					log.Error("write enriched prospects failed", zap.Error(err))
					return
				}
				log.Info("merged enrichment written", zap.String("path", output))
			},
			func(s enrich.State) { donec <- s },
			enrich.Config{
				Interval:     time.Duration(cfg.Enrich.IntervalSecs) * time.Second,
				InitialDelay: time.Duration(cfg.Enrich.InitialDelaySecs) * time.Second,
				MaxDuration:  time.Duration(cfg.Enrich.MaxDurationSecs) * time.Second,
				GracePeriod:  time.Duration(cfg.Enrich.GraceSecs) * time.Second,
				StaleTicks:   cfg.Enrich.StaleTicks,
			})

		state := <-donec
		log.Info("enrichment poll finished", zap.Stringer("state", state))

		// Final observed set, whether or not any tick fired onUpdate.
		if err := writeProspects(output, poller.Prospects()); err != nil {
			return err
		}
		return nil
	},
}

func loadProspects(path string) ([]model.Prospect, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read prospect file %s", path)
	}
	var f prospectFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "parse prospect file %s", path)
	}
	if len(f.Prospects) == 0 {
		return nil, eris.Errorf("prospect file %s is empty", path)
	}
	return f.Prospects, nil
}

func writeProspects(path string, prospects []model.Prospect) error {
	out, err := yaml.Marshal(prospectFile{Prospects: prospects})
	if err != nil {
		return eris.Wrap(err, "encode prospects")
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return eris.Wrapf(err, "write prospects %s", path)
	}
	return nil
}

func init() {
	enrichCmd.Flags().StringVarP(&enrichInput, "input", "i", "", "prospect YAML file")
	enrichCmd.Flags().StringVarP(&enrichOutput, "output", "o", "", "output path (default: rewrite input)")
	enrichCmd.Flags().StringVar(&enrichSession, "session", "", "enrichment session id (default: new UUID)")
	enrichCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(enrichCmd)
}
