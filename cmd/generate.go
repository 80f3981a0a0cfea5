package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/config"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/gate"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/model"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/sequence"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/pkg/anthropic"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/pkg/seqapi"
)

var (
	generateInput   string
	generateOutput  string
	generateBackend string
)

// campaignFile is the YAML input: a prospect list plus the shared
// generation parameters.
type campaignFile struct {
	Prospects []model.Prospect     `yaml:"prospects"`
	Params    model.CampaignParams `yaml:"params"`
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate outreach sequences for a prospect file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		campaign, err := loadCampaign(generateInput)
		if err != nil {
			return err
		}

		gen, err := buildGenerator(cfg, generateBackend)
		if err != nil {
			return err
		}

		exec := sequence.NewExecutor(gen, time.Duration(cfg.Generator.CallTimeoutSecs)*time.Second)
		pool := sequence.NewPool(exec, sequence.PoolConfig{
			Workers:                cfg.Generator.Workers,
			PaceInterval:           time.Duration(cfg.Generator.PaceSecs) * time.Second,
			CooldownDuration:       time.Duration(cfg.Generator.CooldownSecs) * time.Second,
			RetryPause:             time.Duration(cfg.Generator.RetryPauseMs) * time.Millisecond,
			MaxAttempts:            cfg.Generator.MaxAttempts,
			MaxAttemptsRateLimited: cfg.Generator.MaxAttemptsRateLimited,
			OnCooldown: func() {
				zap.L().Warn("rate limited, entering shared cooldown",
					zap.Int("cooldown_secs", cfg.Generator.CooldownSecs),
				)
			},
		})

		var usageGate sequence.UsageGate
		if cfg.Gate.Enabled && cfg.Gate.BaseURL != "" {
			usageGate = gate.NewClient(cfg.Gate.BaseURL)
		}
		orch := sequence.NewOrchestrator(pool, usageGate, cfg.Gate.Account)

		zap.L().Info("starting generation run",
			zap.Int("prospects", len(campaign.Prospects)),
			zap.String("backend", backendName(cfg, generateBackend)),
		)

		report, err := orch.Generate(ctx, campaign.Prospects, campaign.Params, func(done, total int) {
			zap.L().Info("generation progress", zap.Int("done", done), zap.Int("total", total))
		})
		if err != nil {
			return err
		}

		if report.PartialFailure {
			zap.L().Warn("run finished with failures",
				zap.Int("succeeded", len(report.Sequences)),
				zap.Int("failed", len(report.Failed)),
			)
		} else {
			zap.L().Info("run finished", zap.Int("sequences", len(report.Sequences)))
		}

		return writeReport(report, generateOutput)
	},
}

func loadCampaign(path string) (*campaignFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read campaign file %s", path)
	}

	var campaign campaignFile
	if err := yaml.Unmarshal(data, &campaign); err != nil {
		return nil, eris.Wrapf(err, "parse campaign file %s", path)
	}
	if len(campaign.Prospects) == 0 {
		return nil, eris.Errorf("campaign file %s has no prospects", path)
	}
	if len(campaign.Params.Channels) == 0 {
		return nil, eris.Errorf("campaign file %s names no channels", path)
	}
	return &campaign, nil
}

// buildGenerator selects the generation backend. The gateway backend is the
// default; direct talks to the Anthropic API without the gateway in front.
func buildGenerator(cfg *config.Config, override string) (sequence.Generator, error) {
	switch backendName(cfg, override) {
	case "gateway":
		var opts []seqapi.Option
		if cfg.Gateway.BaseURL != "" {
			opts = append(opts, seqapi.WithBaseURL(cfg.Gateway.BaseURL))
		}
		client := seqapi.NewClient(cfg.Gateway.Key, opts...)
		return sequence.NewGatewayGenerator(client, cfg.Generator.Model), nil
	case "direct":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("direct backend requires anthropic.key")
		}
		client := anthropic.NewClient(cfg.Anthropic.Key)
		return sequence.NewDirectGenerator(client, cfg.Anthropic.Model, int64(cfg.Anthropic.MaxTokens)), nil
	default:
		return nil, eris.Errorf("unknown generation backend %q", backendName(cfg, override))
	}
}

func backendName(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	return cfg.Generator.Backend
}

func writeReport(report *model.GenerationReport, path string) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode report")
	}
	out = append(out, '\n')

	if path == "" || path == "-" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return eris.Wrapf(err, "write report %s", path)
	}
	zap.L().Info("report written", zap.String("path", path))
	return nil
}

func init() {
	generateCmd.Flags().StringVarP(&generateInput, "input", "i", "", "campaign YAML file (prospects + params)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "-", "report output path (- for stdout)")
	generateCmd.Flags().StringVar(&generateBackend, "backend", "", "generation backend: gateway or direct (default from config)")
	generateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(generateCmd)
}
