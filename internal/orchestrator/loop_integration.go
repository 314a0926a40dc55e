package orchestrator

import (
	"github.com/codefionn/krim/internal/config"
	"github.com/codefionn/krim/internal/orchestrator/loop"
)

// buildLoopConfig maps configuration onto loop settings.
func buildLoopConfig(cfg *config.Config) *loop.Config {
	lc := loop.DefaultConfig()
	if cfg == nil {
		return lc
	}
	if cfg.MaxTurns > 0 {
		lc.MaxIterations = cfg.MaxTurns
	}
	if cfg.MaxContextTokens > 0 {
		lc.MaxContextTokens = cfg.MaxContextTokens
	}
	return lc
}
