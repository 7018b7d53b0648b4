package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/txengine/internal/buildinfo"
	"github.com/cleared-dev/txengine/internal/config"
	"github.com/cleared-dev/txengine/internal/engine"
	"github.com/cleared-dev/txengine/internal/ledger"
	"github.com/cleared-dev/txengine/internal/logging"
	"github.com/cleared-dev/txengine/internal/records"
	"github.com/cleared-dev/txengine/internal/rejectlog"
	"github.com/cleared-dev/txengine/internal/report"
)

type processOptions struct {
	configPath string
	envFile    string
	dir        string
	rejects    string
	logLevel   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
// Run without a subcommand it processes the given transaction files and
// prints the final account balances as CSV.
func NewRootCommand() *cobra.Command {
	var opts processOptions

	rootCmd := &cobra.Command{
		Use:     "txengine [flags] <file>...",
		Short:   "Apply transaction records to client accounts",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, opts, args)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "config file (default ./"+config.FileName+" if present)")
	f.StringVar(&opts.envFile, "env-file", "", "dotenv file with TXENGINE_* overrides")
	f.StringVar(&opts.dir, "dir", "", "process every *.csv in this directory after the file arguments")
	f.StringVar(&opts.rejects, "rejects", "", "append skipped records to this CSV file")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(newInitCommand())

	return rootCmd
}

func runProcess(cmd *cobra.Command, opts processOptions, args []string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	inputs := append([]string(nil), args...)
	if cfg.Input.Dir != "" {
		files, err := records.Scan(cfg.Input.Dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			inputs = append(inputs, f.Path)
		}
	}
	if len(inputs) == 0 {
		return errors.New("no input files: pass a CSV path, - for stdin, or --dir")
	}

	engOpts := []engine.Option{engine.WithLogger(logger)}
	var rejects *rejectlog.Writer
	if cfg.Rejects.Path != "" {
		rejects = rejectlog.NewWriter(cfg.Rejects.Path)
		engOpts = append(engOpts, engine.WithRejectHandler(rejects.Handle))
	}
	eng := engine.New(ledger.New(), engOpts...)

	for _, path := range inputs {
		sum, err := processFile(eng, path, cmd.InOrStdin())
		if rejects != nil {
			if ferr := rejects.Flush(); ferr != nil {
				// The report is still correct without the side channel.
				logger.Warn("writing reject log failed", zap.String("batch", sum.Batch), zap.Error(ferr))
			}
		}
		if err != nil {
			return err
		}
		logger.Debug("input processed",
			zap.String("path", path),
			zap.String("batch", sum.Batch),
			zap.Any("skipped", sum.ByReason),
		)
	}

	if violations := eng.Ledger().Validate(); len(violations) > 0 {
		for _, v := range violations {
			logger.Error("ledger inconsistency", zap.String("check", v.Check), zap.Uint16("client", v.Client), zap.String("detail", v.Description))
		}
		return fmt.Errorf("ledger failed validation: %d violation(s)", len(violations))
	}

	if err := report.WriteAccounts(cmd.OutOrStdout(), eng.Ledger().Accounts()); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func processFile(eng *engine.Engine, path string, stdin io.Reader) (engine.Summary, error) {
	if path == "-" {
		sum, err := eng.Process(records.NewReader(stdin))
		if err != nil {
			return sum, fmt.Errorf("processing stdin: %w", err)
		}
		return sum, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return engine.Summary{}, fmt.Errorf("opening transactions file: %w", err)
	}
	defer f.Close()

	sum, err := eng.Process(records.NewReader(f))
	if err != nil {
		return sum, fmt.Errorf("processing %s: %w", path, err)
	}
	return sum, nil
}

// loadConfig layers defaults, the config file, env overrides and flags.
func loadConfig(opts processOptions) (*config.Config, error) {
	cfg := config.Default()

	path := opts.configPath
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checking for %s: %w", config.FileName, err)
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := config.ApplyEnv(cfg, opts.envFile); err != nil {
		return nil, err
	}

	if opts.dir != "" {
		cfg.Input.Dir = opts.dir
	}
	if opts.rejects != "" {
		cfg.Rejects.Path = opts.rejects
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	return cfg, nil
}
