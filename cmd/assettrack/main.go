// Command assettrack runs the asset tracking service and its maintenance
// tasks.
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/erazemk/assettrack/internal/config"
	"github.com/erazemk/assettrack/internal/db"
)

// app carries the state shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	closeLog   func()
}

func main() {
	if err := run(&app{v: viper.New()}, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run executes the command line in args. The log file is closed on every
// path out, including subcommand failures.
func run(a *app, args []string) error {
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "assettrack",
		Short:         "IT asset tracking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (default: assettrack.yaml in . or /etc/assettrack)")
	flags.StringP("db", "d", "", "SQLite database path")
	flags.StringP("log", "l", "", "log file path (default: stdout/stderr only)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	_ = a.v.BindPFlag("database.path", flags.Lookup("db"))
	_ = a.v.BindPFlag("log.file", flags.Lookup("log"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newSeedCmd(a),
		newExportCmd(a),
		newVerifyCmd(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	closeLog, err := setupLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	a.closeLog = closeLog
	return nil
}

func (a *app) close() {
	if a.closeLog != nil {
		a.closeLog()
		a.closeLog = nil
	}
}

// openDB opens the configured database and brings its schema up to date.
func (a *app) openDB() (*sql.DB, error) {
	database, err := db.Open(a.cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
