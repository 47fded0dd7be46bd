package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/config"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/constants"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/database"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/formbuilder"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/logging"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/record"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/server"
)

// environment is what every command needs: the loaded configuration and a
// record store over the connected database
type environment struct {
	cfg    *config.AppConfig
	driver database.Driver
	store  *record.Store
}

func (e *environment) Close() error {
	return e.driver.Close()
}

// setup loads the configuration, initializes logging and connects to the
// database. Log output goes to logOutput unless a log file is configured.
func setup(ctx context.Context, configPath string, logOutput io.Writer) (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := cfg.LoggerConfig()
	logCfg.Output = logOutput
	logging.Init(logCfg)

	driver, err := database.NewDriver(database.Config{
		ConnectionString: cfg.Database.ConnectionString,
		MaxOpenConns:     cfg.Database.MaxOpenConns,
		MaxIdleConns:     cfg.Database.MaxIdleConns,
		ConnMaxLifetime:  time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	if err := driver.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := record.NewStore(driver, registry.NewSchemaRegistry(), logging.GetLogger())
	return &environment{cfg: cfg, driver: driver, store: store}, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve table forms over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Formbuilder - forms generated from database tables")

			env, err := setup(cmd.Context(), *configPath, os.Stdout)
			if err != nil {
				return err
			}
			defer env.Close()

			logConfigSummary(env.cfg)
			fmt.Fprintf(out, "Server will start on %s:%d\n", env.cfg.Server.Host, env.cfg.Server.Port)
			fmt.Fprintf(out, "Connected to %s database\n", env.driver.Dialect())

			srv := server.New(env.cfg, env.driver, env.store, config.Version())
			if err := srv.Run(); err != nil {
				logging.Errorf("Server error: %v", err)
				return err
			}

			fmt.Fprintln(out, "Server stopped gracefully")
			return nil
		},
	}
}

func renderCmd(configPath *string) *cobra.Command {
	var (
		id     string
		format string
	)

	cmd := &cobra.Command{
		Use:   "render <table>",
		Short: "Render the form of a table row",
		Long: `Render the form of a table row to standard output. Without --id the
form creates a new row.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := constants.RenderFormats[format]; !ok {
				return fmt.Errorf("unsupported format %q", format)
			}

			ctx := cmd.Context()
			env, err := setup(ctx, *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			return renderForm(ctx, env, args[0], id, format, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "primary key of the row to edit")
	cmd.Flags().StringVarP(&format, "format", "f", constants.DefaultFormatName, "output format (html, json or yaml)")

	return cmd
}

func renderForm(ctx context.Context, env *environment, table, id, format string, out, errOut io.Writer) error {
	var rec record.Record
	var err error
	if id == "" {
		rec, err = env.store.New(ctx, table)
	} else {
		rec, err = env.store.Get(ctx, table, rowKey(ctx, env.store, table, id))
	}
	if err != nil {
		return err
	}

	opts := env.cfg.FormOptions()
	opts.Toolkit = format
	b, err := formbuilder.New(rec, env.store, opts, formbuilder.Hooks{})
	if err != nil {
		return err
	}

	form, err := b.GetForm(ctx)
	if err != nil {
		return err
	}

	warn := color.New(color.FgYellow)
	for _, w := range b.Warnings() {
		warn.Fprintf(errOut, "warning: %s\n", w)
	}

	return form.Render(out)
}

// rowKey converts id to an integer when the table's primary key is one
func rowKey(ctx context.Context, store *record.Store, table, id string) any {
	schema, err := store.Table(ctx, table)
	if err != nil {
		return id
	}
	if col, ok := schema.Column(schema.PrimaryKey()); ok && col.Flags.Has(registry.FlagInt) {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			return n
		}
	}
	return id
}

func tablesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables forms can be built for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := setup(ctx, *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			return listTables(ctx, env.store, cmd.OutOrStdout())
		},
	}
}

func listTables(ctx context.Context, store *record.Store, out io.Writer) error {
	tables, err := store.Tables(ctx)
	if err != nil {
		return err
	}

	name := color.New(color.FgCyan, color.Bold)
	faint := color.New(color.Faint)
	bad := color.New(color.FgRed)

	for _, table := range tables {
		schema, err := store.Table(ctx, table)
		if err != nil {
			name.Fprintf(out, "%s", table)
			bad.Fprintf(out, "  %v\n", err)
			continue
		}

		name.Fprintf(out, "%s", table)
		fmt.Fprintf(out, "  %d columns", len(schema.Columns))
		if len(schema.PrimaryKeys) > 0 {
			fmt.Fprintf(out, ", key %s", strings.Join(schema.PrimaryKeys, "+"))
		} else {
			bad.Fprint(out, ", no primary key")
		}
		fmt.Fprintln(out)

		for _, link := range schema.Links {
			faint.Fprintf(out, "  %s -> %s.%s\n", link.Column, link.Table, link.TargetColumn)
		}
	}

	fmt.Fprintf(out, "%d tables\n", len(tables))
	return nil
}

// logConfigSummary logs the loaded configuration for debugging
func logConfigSummary(cfg *config.AppConfig) {
	logging.Info("=== Configuration Summary ===")
	logging.Infof("Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	if cfg.Server.Prefix != "" {
		logging.Infof("Prefix: %s", cfg.Server.Prefix)
	}
	logging.Infof("Form toolkit: %s", cfg.Form.Toolkit)
	logging.Infof("Configured tables: %d", len(cfg.Tables))
	logging.Infof("Submit auth enabled: %v", cfg.Auth.JWTSecret != "")
	logging.Info("============================")
}
