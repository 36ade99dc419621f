package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked: anything touching
// the listen address, database, or voice transport needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// FinanceChanged is set when the default tax rate or currency changed.
	FinanceChanged bool
	NewFinance     FinanceConfig

	// InstructionsChanged is set when the voice persona prompt changed.
	InstructionsChanged bool
	NewInstructions     string
}

// Empty reports whether the diff carries no hot-reloadable change.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.FinanceChanged && !d.InstructionsChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Finance != new.Finance {
		d.FinanceChanged = true
		d.NewFinance = new.Finance
	}
	if old.Voice.Instructions != new.Voice.Instructions {
		d.InstructionsChanged = true
		d.NewInstructions = new.Voice.Instructions
	}

	return d
}
