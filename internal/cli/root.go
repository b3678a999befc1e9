package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/miradorstack/mirador-aiops/internal/client"
)

// app carries resolved global settings into sub-commands.
type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
}

func (a *app) engineClient() *client.EngineClient {
	return client.NewEngineClient(a.v.GetString("engine"), a.v.GetDuration("timeout"))
}

func (a *app) jsonOutput() bool {
	return strings.EqualFold(a.v.GetString("output"), "json")
}

// NewRootCommand builds the aiopsctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "aiopsctl",
		Short: "Drive and inspect the AIOps correlation engine",
		Long: `aiopsctl simulates alert streams, labels anomalies with an isolation
forest and triggers correlation runs against a running aiops-engine.

Examples:
  aiopsctl simulate --events 100 > events.json
  aiopsctl detect --in events.json
  aiopsctl detect --events 50 --seed 7
  aiopsctl run --seed 42
  aiopsctl graph --svg graph.svg`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
			return initConfig(a.v, cfgFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.aiopsctl.yaml)")
	rootCmd.PersistentFlags().String("engine", "http://localhost:5000", "aiops-engine HTTP endpoint")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "request timeout")
	rootCmd.PersistentFlags().StringP("output", "o", "human", "output format (human, json)")

	for _, name := range []string{"engine", "timeout", "output"} {
		_ = a.v.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	rootCmd.AddCommand(newSimulateCommand(a))
	rootCmd.AddCommand(newDetectCommand(a))
	rootCmd.AddCommand(newRunCommand(a))
	rootCmd.AddCommand(newGraphCommand(a))
	return rootCmd
}

// Execute runs the CLI against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("AIOPSCTL")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	v.SetConfigName(".aiopsctl")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}
