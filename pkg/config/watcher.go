package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch re-reads the configuration whenever the backing file changes and
// passes the fresh Config to onChange. Invalid content is logged and skipped;
// the previous configuration stays in effect.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(Config)) {
	if v == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			log.Error("failed to reload configuration", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		applyDefaults(&cfg)

		log.Info("configuration reloaded", slog.String("file", e.Name))

		if onChange != nil {
			onChange(cfg)
		}
	})

	v.WatchConfig()
}
