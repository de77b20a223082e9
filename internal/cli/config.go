package cli

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/matjam/slideframe/internal/config"
	"github.com/spf13/viper"
)

func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("slideframe")
		viper.SetConfigType("toml")
		viper.AddConfigPath("$HOME/.config/slideframe")
		viper.AddConfigPath("/etc/xdg/slideframe")
	}

	config.SetDefaults()

	viper.SetEnvPrefix("slideframe")
	viper.AutomaticEnv() // read environment variables that match

	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	err := viper.ReadInConfig()
	if err == nil {
		log.Debug("Using config file", "path", viper.ConfigFileUsed())
		return
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		log.Warn("No config file found, using defaults (install one with --installconfig)")
		return
	}
	log.Fatalf("Error reading config file: %v", err)
}
