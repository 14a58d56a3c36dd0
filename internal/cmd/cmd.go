package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/v-kiniv/imu/internal/app"
	"github.com/v-kiniv/imu/internal/config"
	"github.com/v-kiniv/imu/internal/monitor"
)

var RootCmd = &cobra.Command{
	Use:   "imuread",
	Short: "read inertial sensors through the imu abstraction layer",
	Long:  "read inertial sensors through the imu abstraction layer",
}

func ReadCmdRunE(cmd *cobra.Command, args []string) error {
	return app.NewMainApp(cmd, args).PrepareRun().ReadOnce()
}

func CommonCmdFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "default configuration path")
	cmd.Flags().Bool("debug", false, "toggle debug logging")
}

var ReadCmd = &cobra.Command{
	Use: "read",
	SuggestFor: []string{
		"re", "rea",
	},
	Short: "read samples every attached sensor once and print them",
	Long: `read assembles the device from the configuration, performs one read
of every attached sensor and prints the converted samples. Configuration is
located by the following order:
1. path specified in --config flag
2. path defined in IMUREAD_CONFIG environment variable
3. default location $HOME/.config/imuread/config.yaml, /etc/imuread/config.yaml, current directory
`,
	Example: `  imuread read --config=/path/to/config.yaml`,
	RunE:    ReadCmdRunE,
}

func MonitorCmdRunE(cmd *cobra.Command, args []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	a := app.NewMainApp(cmd, args).PrepareRun()
	dev, cleanup, err := a.Assemble()
	if err != nil {
		return err
	}
	defer cleanup()
	return monitor.Run(dev, interval)
}

var MonitorCmd = &cobra.Command{
	Use: "monitor",
	SuggestFor: []string{
		"mon", "moni",
	},
	Short:   "continuously read the sensors into a live table",
	Long:    "monitor polls every attached sensor and renders the samples in a terminal table. Quit with q.",
	Example: `  imuread monitor --interval 100ms`,
	RunE:    MonitorCmdRunE,
}

var ProbeCmd = &cobra.Command{
	Use: "probe",
	SuggestFor: []string{
		"pro", "pr", "prob",
	},
	Short: "probe the configured buses for the configured chips",
	Long: `probe attaches each configured sensor in turn and reports whether
its chip answered on the configured bus, without keeping anything attached.
`,
	Example: `  imuread probe`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.NewMainApp(cmd, args).PrepareRun().Probe()
	},
}

func InitCmdFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("print", false, "print config to stdout")
	cmd.Flags().BoolP("yes", "y", false, "overwrite")
	cmd.Flags().StringP("output", "o", config.DefaultConfig, "specify output path")
}

var InitCmd = &cobra.Command{
	Use: "init",
	SuggestFor: []string{
		"ini", "in",
	},
	Short: "init create a configuration template",
	Long: `init create a configuration template describing the buses and
sensor attachments.
If --print flag is present, the configuration will be printed to stdout.
If --output / -o flag is present, the configuration will be saved to the path specified.
Otherwise init will write the configuration to $HOME/.config/imuread/config.yaml.
If --yes / -y flag is present, an existing file is overwritten without confirmation.
`,
	Example: `  imuread init --print
  imuread init --output /path/to/config.yaml
  imuread init -o /path/to/config.yaml -y`,
	RunE: config.InitCfg,
}

func getRootCmd() *cobra.Command {

	CommonCmdFlags(ReadCmd)
	RootCmd.AddCommand(ReadCmd)

	CommonCmdFlags(MonitorCmd)
	MonitorCmd.Flags().Duration("interval", 100*time.Millisecond, "poll interval")
	RootCmd.AddCommand(MonitorCmd)

	CommonCmdFlags(ProbeCmd)
	RootCmd.AddCommand(ProbeCmd)

	InitCmdFlags(InitCmd)
	RootCmd.AddCommand(InitCmd)

	return RootCmd
}

func Execute() {
	rootCmd := getRootCmd()
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
