// Command jyra is the CLI surface of the persona-memory core: bot, db-init,
// maintenance, version.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is the build-time version string, overridden via -ldflags in a
// real release build.
var version = "dev"

// configFilePath is set by the --config persistent flag and read by the
// bot command to enable live config-file reloading; cobra has no built-in
// way to pass a persistent flag's value to a subcommand's RunE other than
// a package-level or closure variable.
var configFilePath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jyra",
		Short: "Jyra persona-memory core",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			viper.SetEnvPrefix("")
			viper.AutomaticEnv()
			if configFilePath != "" {
				viper.SetConfigFile(configFilePath)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("read config file: %w", err)
				}
				for _, key := range viper.AllKeys() {
					envKey := strings.ToUpper(key)
					if os.Getenv(envKey) == "" {
						if v := viper.GetString(key); v != "" {
							os.Setenv(envKey, v)
						}
					}
				}
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configFilePath, "config", "", "optional config file layered under env vars; watched for live reload by the bot command")

	root.AddCommand(newBotCmd())
	root.AddCommand(newDBInitCmd())
	root.AddCommand(newMaintenanceCmd())
	root.AddCommand(newVersionCmd())
	root.AddCommand(newShowConfigCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
