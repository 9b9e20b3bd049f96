package config

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RestartRequired lists the top-level sections that changed but cannot
	// be applied to a running pipeline.
	RestartRequired []string
}

// Changed reports whether anything differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	sections := []struct {
		name    string
		changed bool
	}{
		{"audio", old.Audio != new.Audio},
		{"recognizer", old.Recognizer != new.Recognizer},
		{"tts", old.TTS != new.TTS},
		{"gpio", old.GPIO != new.GPIO},
		{"ups", old.UPS != new.UPS},
		{"store", old.Store != new.Store},
		{"metrics", old.Metrics != new.Metrics},
	}
	for _, s := range sections {
		if s.changed {
			d.RestartRequired = append(d.RestartRequired, s.name)
		}
	}
	return d
}
