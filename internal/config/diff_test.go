package config_test

import (
	"testing"

	"github.com/ledgerly-ai/ledgerly/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{LogLevel: config.LogInfo},
		Finance: config.FinanceConfig{DefaultTaxRate: 19, Currency: "EUR"},
		Voice:   config.VoiceConfig{Instructions: "You keep the books."},
	}
}

func TestDiffEmpty(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	if d := config.Diff(old, new); !d.Empty() {
		t.Errorf("identical configs produced diff %+v", d)
	}
}

func TestDiffLogLevel(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("diff = %+v, want log level change to debug", d)
	}
	if d.FinanceChanged || d.InstructionsChanged {
		t.Errorf("unrelated fields flagged: %+v", d)
	}
}

func TestDiffFinance(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	new.Finance.DefaultTaxRate = 7

	d := config.Diff(old, new)
	if !d.FinanceChanged || d.NewFinance.DefaultTaxRate != 7 {
		t.Errorf("diff = %+v, want finance change", d)
	}
}

func TestDiffInstructions(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	new.Voice.Instructions = "You are terse."

	d := config.Diff(old, new)
	if !d.InstructionsChanged || d.NewInstructions != "You are terse." {
		t.Errorf("diff = %+v, want instructions change", d)
	}
}
