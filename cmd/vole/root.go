package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rodent-software/vole"
	"github.com/rodent-software/vole/storage"
)

// Config holds the CLI configuration, loadable from a yaml file.
type Config struct {
	Database string `yaml:"database"`
	LogLevel string `yaml:"log_level"`
}

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Database   string
	Verbose    bool

	log *logrus.Logger
}

// NewRootCommand creates the root command for the vole CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{log: logrus.New()}

	cmd := &cobra.Command{
		Use:           "vole",
		Short:         "vole - a local document database with revision histories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to yaml config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to database file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewAllDocsCommand(opts))
	cmd.AddCommand(NewChangesCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))

	return cmd
}

func (o *RootOptions) setup() error {
	o.log.SetOutput(os.Stderr)
	o.log.SetLevel(logrus.WarnLevel)
	if o.Verbose {
		o.log.SetLevel(logrus.DebugLevel)
	}
	if o.ConfigPath == "" {
		return nil
	}
	data, err := os.ReadFile(o.ConfigPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if o.Database == "" {
		o.Database = cfg.Database
	}
	if cfg.LogLevel != "" && !o.Verbose {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		o.log.SetLevel(level)
	}
	return nil
}

// openDB opens the configured database, defaulting to vole.db in the
// working directory.
func (o *RootOptions) openDB(cmd *cobra.Command) (*vole.DB, func(), error) {
	path := o.Database
	if path == "" {
		path = "vole.db"
	}
	backend, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	name := filepath.Base(path)
	db, err := vole.Open(cmd.Context(), backend, name, vole.WithLogger(o.log))
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	cleanup := func() {
		db.Close()
		backend.Close()
	}
	return db, cleanup, nil
}
