package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"unifile/pkg/config"
	"unifile/pkg/logging"
	"unifile/pkg/merge"
	"unifile/pkg/version"
)

var rootFlags struct {
	configPath    string
	encoding      string
	exclude       []string
	tree          string
	noSummary     bool
	noLineNumbers bool
	silent        bool
	verbose       bool
}

// RootCmd is the base command; unifile takes the source directory and the
// output file as positional arguments.
var RootCmd = &cobra.Command{
	Use:   "unifile <directory> <output-file>",
	Short: "unifile merges a directory tree's text files into a single document",
	Long: `unifile walks a directory tree, filters files by exclusion rules, reads each
file's text content with encoding fallback, and concatenates everything into
one annotated output document for archival, sharing, or language-model input.`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.Setup(rootFlags.verbose, rootFlags.silent, "unifile", version.Get().Version)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		cfg, err := loadConfig(logger)
		if err != nil {
			return err
		}

		summary, err := merge.Run(merge.Arguments{
			SourceDir:     args[0],
			Output:        args[1],
			Tree:          rootFlags.tree,
			ExtraPatterns: rootFlags.exclude,
		}, cfg, logger)
		if err != nil {
			return err
		}

		if !rootFlags.silent {
			color.New(color.FgGreen).Fprintf(os.Stdout,
				"Successfully merged %d files into %s\n", summary.FilesIncluded, args[1])
		}
		return nil
	},
}

// loadConfig resolves the configuration file and applies command-line
// overrides on top of it.
func loadConfig(logger *zap.Logger) (*config.Config, error) {
	path := rootFlags.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warn("Config file not found, using defaults", zap.String("path", path))
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if rootFlags.encoding != "" {
		cfg.Encoding.Default = rootFlags.encoding
	}
	if rootFlags.noSummary {
		cfg.OutputFormat.ShowSummary = false
	}
	if rootFlags.noLineNumbers {
		cfg.OutputFormat.AddLineNumbers = false
	}
	return cfg, nil
}

// Execute runs the root command. The logger passed from main reports errors
// that occur before the per-invocation logger exists.
func Execute(logger *zap.Logger) error {
	if err := RootCmd.Execute(); err != nil {
		logger.Debug("Command execution failed", zap.Error(err))
		return err
	}
	return nil
}

func init() {
	RootCmd.Flags().StringVar(&rootFlags.configPath, "config", "", "Path to configuration file (default: $HOME/"+config.DefaultFileName+")")
	RootCmd.Flags().StringVar(&rootFlags.encoding, "encoding", "", "Override the default encoding")
	RootCmd.Flags().StringArrayVar(&rootFlags.exclude, "exclude", nil, "Additional filename exclusion pattern (repeatable)")
	RootCmd.Flags().StringVar(&rootFlags.tree, "tree", "", "Also write a directory tree rendering to this path")
	RootCmd.Flags().BoolVar(&rootFlags.noSummary, "no-summary", false, "Disable the summary footer")
	RootCmd.Flags().BoolVar(&rootFlags.noLineNumbers, "no-line-numbers", false, "Disable line numbering")
	RootCmd.Flags().BoolVar(&rootFlags.silent, "silent", false, "Suppress all output except errors")
	RootCmd.Flags().BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Enable debug logging")
}
