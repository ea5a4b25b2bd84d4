package commands

import (
	"github.com/koscakluka/ema-realtime/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "ema-listen",
	Short: "Realtime listening assistant",
	Long: `ema-listen - streams system audio, microphone input and typed messages to
the OpenAI Realtime API and prints the assistant's answers as they arrive.

Configuration is read from a YAML file (--config or EMA_CONFIG). The API key
is read from OPENAI_API_KEY; a .env file is loaded before the environment is
consulted.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before reading the environment")
}

// loadConfig reads the configuration selected by the persistent flags.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath, envFile)
}
