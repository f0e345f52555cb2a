package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/finmail/internal/app"
	"github.com/nhle/finmail/internal/classifier"
	"github.com/nhle/finmail/internal/credential"
	"github.com/nhle/finmail/internal/mailbox"
	"github.com/nhle/finmail/internal/model"
	"github.com/nhle/finmail/internal/store"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	configPath string
	envFile    string
	accountRef string
	debugFlag  bool
	jsonOutput bool

	logger      = logrus.New()
	cfg         *model.AppConfig
	db          *store.SQLiteStore
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:           "finmail",
	Short:         "finmail - financial insights from your inbox",
	Long:          "Connect an IMAP mailbox, read it page by page, and extract bills, price changes, renewals, payments and investment updates.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "version", "providers":
			return nil
		}
		return setup(cmd.Name() == "init")
	},
}

// setup loads configuration and builds the application. The init
// command only needs the configuration.
func setup(configOnly bool) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}

	var err error
	cfg, err = model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	configureLogger(cfg.Log.Level)
	if configOnly {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	db, err = store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	secrets, err := credential.NewProvider(cfg.Secret.Backend, cfg.Secret.EnvVar, model.DefaultConfigDir())
	if err != nil {
		return err
	}

	application = app.New(app.Options{
		Config: cfg,
		Store:  db,
		Vault:  credential.NewVault(secrets),
		Mailbox: mailbox.NewManager(mailbox.Config{
			Timeout: cfg.IMAP.Timeout(),
			PerPage: cfg.IMAP.PageSize,
			Log:     logger,
		}),
		Classifier: classifier.New(classifier.Config{
			Debug: cfg.Classifier.Debug || debugFlag,
			Log:   logger,
		}),
		Log: logger,
	})
	return nil
}

func configureLogger(level string) {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	if debugFlag {
		lvl = logrus.DebugLevel
	}
	logger.SetLevel(lvl)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "finmail version %s\n", Version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := model.SaveConfig(configPath, cfg); err != nil {
			return err
		}
		SuccessMsg(cmd.OutOrStdout(), "Wrote %s", configPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "Configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before configuration")
	rootCmd.PersistentFlags().StringVarP(&accountRef, "account", "a", "", "Account id or email (default: the only connected account)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Verbose logging, including classifier decisions")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// execute runs the command line and closes the store on every exit path,
// including failed commands.
func execute(args []string) error {
	defer closeStore()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func closeStore() {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.WithError(err).Warn("closing database")
	}
	db, application = nil, nil
}

func main() {
	if err := execute(os.Args[1:]); err != nil {
		ErrorMsg(os.Stderr, "%s", err)
		os.Exit(1)
	}
}
