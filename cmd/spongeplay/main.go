package main

import (
	"fmt"
	"os"

	"github.com/bikinibottom/spongeplay/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	rootCmd := &cobra.Command{
		Use:          "spongeplay",
		Short:        "Video link normalizer, parser player and message board",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("please specify a subcommand. Use --help to see available subcommands")
		},
	}

	if err := config.BindFlags(rootCmd, v); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(serveCmd(v))
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(playCmd())
	rootCmd.AddCommand(parsersCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	return rootCmd
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
