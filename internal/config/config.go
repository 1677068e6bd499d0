// Package config resolves asanadw's two configuration layers (spec.md §6
// "Configuration table keys", §9 bootstrap settings): the app_config
// database table, which is authoritative once the store is open, and a
// small set of pre-DB-open bootstrap settings read from an environment and
// an optional local file, the way the teacher splits internal/config
// (DB-backed) from internal/configfile/LocalConfig (pre-DB-open).
package config

import (
	"context"

	"github.com/spf13/viper"

	"github.com/adlio/asanadw/internal/errs"
	"github.com/adlio/asanadw/internal/storage"
)

// Known app_config keys (spec.md §6 "Configuration table keys").
const (
	KeyWorkspaceGID = "workspace_gid"
	KeyDefaultDays  = "default_days"
	KeyLLMProvider  = "llm_provider"
	KeyLLMModel     = "llm_model"

	ProviderBedrock   = "bedrock"
	ProviderAnthropic = "anthropic"
)

// Env resolves process-environment input (spec.md §6 "Environment
// contract"). It never touches app_config; Resolve below is the layer
// that combines both.
type Env struct {
	v *viper.Viper
}

// NewEnv builds an Env bound to the process environment via viper's
// AutomaticEnv, the way the teacher wires env-backed settings in
// cmd/bd/config.go.
func NewEnv() *Env {
	v := viper.New()
	v.AutomaticEnv()
	_ = v.BindEnv("asana_token", "ASANA_TOKEN")
	_ = v.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY")
	return &Env{v: v}
}

// AsanaToken returns ASANA_TOKEN, required for every sync operation.
func (e *Env) AsanaToken() string { return e.v.GetString("asana_token") }

// AnthropicAPIKey returns ANTHROPIC_API_KEY, required only when
// llm_provider is "anthropic".
func (e *Env) AnthropicAPIKey() string { return e.v.GetString("anthropic_api_key") }

// Settings is the resolved runtime configuration a facade builds its
// collaborators from: app_config values read through Store, defaulted
// where spec.md allows a default.
type Settings struct {
	WorkspaceGID string
	DefaultDays  int
	LLMProvider  string
	LLMModel     string
}

const defaultDefaultDays = 90

// Resolve reads app_config through store, applying spec.md §6's default
// provider (bedrock) and default_days when unset.
func Resolve(ctx context.Context, store *storage.Store) (Settings, error) {
	s := Settings{DefaultDays: defaultDefaultDays, LLMProvider: ProviderBedrock}

	if v, ok, err := store.GetConfig(ctx, KeyWorkspaceGID); err != nil {
		return Settings{}, err
	} else if ok {
		s.WorkspaceGID = v
	}
	if v, ok, err := store.GetConfig(ctx, KeyLLMProvider); err != nil {
		return Settings{}, err
	} else if ok {
		if v != ProviderBedrock && v != ProviderAnthropic {
			return Settings{}, errs.New(errs.KindConfig, "llm_provider must be bedrock or anthropic, got "+v)
		}
		s.LLMProvider = v
	}
	if v, ok, err := store.GetConfig(ctx, KeyLLMModel); err != nil {
		return Settings{}, err
	} else if ok {
		s.LLMModel = v
	}
	if v, ok, err := store.GetConfig(ctx, KeyDefaultDays); err != nil {
		return Settings{}, err
	} else if ok {
		if days, parseErr := parsePositiveInt(v); parseErr == nil {
			s.DefaultDays = days
		}
	}
	return s, nil
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errs.New(errs.KindConfig, "default_days must be a positive integer, got "+s)
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, errs.New(errs.KindConfig, "default_days must be positive, got "+s)
	}
	return n, nil
}
