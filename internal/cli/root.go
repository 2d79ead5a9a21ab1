package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dl-alexandre/zsync/internal/config"
	zerrors "github.com/dl-alexandre/zsync/internal/errors"
	"github.com/dl-alexandre/zsync/internal/logging"
	"github.com/dl-alexandre/zsync/internal/types"
	"github.com/dl-alexandre/zsync/internal/utils"
	"github.com/dl-alexandre/zsync/pkg/version"
)

var (
	globalFlags types.GlobalFlags
	appConfig   *config.Config
	logger      logging.Logger = logging.NewNoOpLogger()
	traceID     string
	// errorReported is set once an OutputWriter has printed a failure.
	errorReported bool
)

var rootCmd = &cobra.Command{
	Use:   "zsync",
	Short: "Incremental upload of a local tree to z/OS partitioned data sets",
	Long: `zsync keeps partitioned data sets on a z/OS host in step with a local
directory tree. Each run uploads files changed since the previous run over FTP
and deletes members whose files were removed.

Directories map to data set qualifiers and files to members, both truncated to
eight characters and upper-cased.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if globalFlags.Config != "" {
			if err := os.Setenv(config.EnvPrefix+"CONFIG_DIR", globalFlags.Config); err != nil {
				return err
			}
		}

		cfg, err := config.Load()
		if err != nil {
			return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).Build())
		}
		appConfig = cfg

		if err := validateGlobalFlags(); err != nil {
			return err
		}

		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = logging.INFO
		}
		logConfig := logging.DefaultLogConfig()
		logConfig.Level = level
		logConfig.OutputFile = globalFlags.LogFile
		logConfig.EnableConsole = !globalFlags.Quiet && cfg.LogLevel != "quiet"
		logConfig.EnableDebug = globalFlags.Debug
		logConfig.EnableColor = cfg.ColorOutput
		if globalFlags.Verbose {
			logConfig.Level = logging.DEBUG
		}
		if globalFlags.OutputFormat == types.OutputFormatJSON && !globalFlags.Verbose && !globalFlags.Debug {
			logConfig.EnableConsole = false
		}

		base, err := logging.NewLogger(logConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		traceID = uuid.New().String()
		logger = base.WithTraceID(traceID)
		logger.Debug(version.Get().Banner())

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Close()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "Print the version, commit and build information of zsync",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := NewOutputWriter(globalFlags.OutputFormat, globalFlags.Quiet, globalFlags.Verbose)
		info := version.Get()
		if globalFlags.OutputFormat == types.OutputFormatJSON {
			return out.WriteSuccess("version", info)
		}
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar((*string)(&globalFlags.OutputFormat), "output", "", "Output format (json, table)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Debug, "debug", false, "Enable debug output, including the FTP dialogue")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", "", "Path to configuration directory")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format (alias for --output json)")

	rootCmd.AddCommand(versionCmd)
}

func validateGlobalFlags() error {
	if globalFlags.JSON {
		globalFlags.OutputFormat = types.OutputFormatJSON
	}
	if globalFlags.OutputFormat == "" {
		globalFlags.OutputFormat = appConfig.DefaultOutputFormat
	}

	if globalFlags.OutputFormat != types.OutputFormatJSON && globalFlags.OutputFormat != types.OutputFormatTable {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("invalid output format: %s", globalFlags.OutputFormat)).Build())
	}
	return nil
}

// Execute runs the root command and exits with the code of the failure, if any
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cliErr := zerrors.Classify(err)
		if !errorReported {
			// e.g. flag parsing errors, which never reach an OutputWriter
			fmt.Fprintf(os.Stderr, "Error: %s\n", cliErr.Message)
		}
		os.Exit(utils.GetExitCode(cliErr.Code))
	}
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() types.GlobalFlags {
	return globalFlags
}

// GetLogger returns the global logger
func GetLogger() logging.Logger {
	return logger
}

func getConfigDir() string {
	dir, err := config.GetConfigDir()
	if err == nil {
		return dir
	}
	return ".zsync"
}
