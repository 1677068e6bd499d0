package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adlio/asanadw/internal/calendar"
	"github.com/adlio/asanadw/internal/config"
	"github.com/adlio/asanadw/internal/summary"
)

var (
	summarizeTask      string
	summarizeProject   string
	summarizePortfolio string
	summarizeTeam      string
	summarizeUser      string
	summarizePeriod    string
	summarizeForce     bool
	summarizePromptVer string
	summarizeModel     string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate or fetch a cached LLM summary for an entity (spec.md §4.10)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		target := summary.Target{
			TaskGID:      summarizeTask,
			ProjectGID:   summarizeProject,
			PortfolioGID: summarizePortfolio,
			TeamGID:      summarizeTeam,
			UserGID:      summarizeUser,
		}
		if target.TaskGID == "" {
			if summarizePeriod == "" {
				return fmt.Errorf("--period is required for entity summaries")
			}
			p, err := calendar.Parse(summarizePeriod, timeNow())
			if err != nil {
				return err
			}
			target.Period = p
		}

		if err := wireSummaryCollaborator(ctx); err != nil {
			return err
		}

		text, err := f.Summarize(ctx, target, summarizeForce)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeTask, "task", "", "task gid to summarize")
	summarizeCmd.Flags().StringVar(&summarizeProject, "project", "", "project gid to summarize")
	summarizeCmd.Flags().StringVar(&summarizePortfolio, "portfolio", "", "portfolio gid to summarize")
	summarizeCmd.Flags().StringVar(&summarizeTeam, "team", "", "team gid to summarize")
	summarizeCmd.Flags().StringVar(&summarizeUser, "user", "", "user gid to summarize")
	summarizeCmd.Flags().StringVar(&summarizePeriod, "period", "", "calendar period for entity summaries, e.g. 2026-q1")
	summarizeCmd.Flags().BoolVar(&summarizeForce, "force", false, "bypass the cached summary and regenerate")
	summarizeCmd.Flags().StringVar(&summarizePromptVer, "prompt-version", "v1", "prompt_version tag stored with the cached summary")
	summarizeCmd.Flags().StringVar(&summarizeModel, "model", "", "override the configured llm_model")
}

// wireSummaryCollaborator selects and constructs the LLM collaborator named
// by app_config's llm_provider (spec.md §6 "the provider ... is selected by
// the llm_provider config value"), then attaches it to the shared facade.
func wireSummaryCollaborator(ctx context.Context) error {
	prompts, err := summary.DefaultPromptBundle()
	if err != nil {
		return err
	}

	model := summarizeModel
	if model == "" {
		model = f.Settings.LLMModel
	}

	var llm summary.Collaborator
	switch f.Settings.LLMProvider {
	case config.ProviderAnthropic:
		env := config.NewEnv()
		llm, err = summary.NewAnthropicCollaborator(env.AnthropicAPIKey(), model)
	default:
		llm, err = summary.NewBedrockCollaborator(ctx, "", model)
	}
	if err != nil {
		return err
	}

	f.WithSummary(llm, prompts, summarizePromptVer)
	return nil
}
