package config

// NewDefaults returns a Config populated with all default values.
func NewDefaults() *Config {
	return &Config{
		Settings: Settings{
			Jobs:           0, // one worker per CPU
			Progress:       true,
			FingerprintDir: ".kestrel/fingerprints",
		},
		Tasks: map[string]TaskDef{},
	}
}

// ApplyDefaults fills zero-valued settings in cfg from the defaults. Task
// definitions are left untouched.
func ApplyDefaults(cfg *Config) {
	defaults := NewDefaults()
	if cfg.Settings.FingerprintDir == "" {
		cfg.Settings.FingerprintDir = defaults.Settings.FingerprintDir
	}
	if cfg.Tasks == nil {
		cfg.Tasks = map[string]TaskDef{}
	}
}
