package main

import (
	"fmt"
	"strings"

	"query_clash_backend/internal/app"
	"query_clash_backend/internal/config"
	"query_clash_backend/pkg/database"
	"query_clash_backend/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type flags struct {
	configDir string
	migrate   bool
}

func loadConfig(v *viper.Viper, f *flags) (*config.Config, error) {
	cfg, err := config.LoadWith(v, f.configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ForceMigrate = f.migrate
	return cfg, nil
}

func newCmd() *cobra.Command {
	v := viper.New()
	f := &flags{}

	cmd := &cobra.Command{
		Use:           "query-clash",
		Short:         "Serve the Query Clash SQL investigation game.",
		Args:          cobra.NoArgs,
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(v, f)
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	pfs.StringVarP(&f.configDir, "config", "c", "configs", "directory holding config.yaml")
	pfs.BoolVar(&f.migrate, "migrate", false, "run schema migrations on start even when auto_migrate is off")
	pfs.StringP("port", "p", "", "port to listen on (env: PORT)")
	pfs.String("mode", "", "gin mode: debug, release or test (env: SERVER_MODE)")

	_ = v.BindPFlag("server.port", pfs.Lookup("port"))
	_ = v.BindPFlag("server.mode", pfs.Lookup("mode"))

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(v, f)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the game tables, seed investigations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(v, f)
		},
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("query-clash v{{.Version}}\n")

	return cmd
}

func serve(v *viper.Viper, f *flags) error {
	cfg, err := loadConfig(v, f)
	if err != nil {
		return err
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer logger.Log.Sync()

	application.Run()
	return nil
}

func migrate(v *viper.Viper, f *flags) error {
	cfg, err := loadConfig(v, f)
	if err != nil {
		return err
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, caps, err := database.InitDB(&cfg.Database, cfg.Server.Mode, true)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	logger.Log.Info("Database migration completed", zap.Bool("solved_at", caps.SolvedAt))
	return nil
}
