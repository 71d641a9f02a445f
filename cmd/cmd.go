package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/vzalabardo/tomorrowmanyers/internal/config"
	"github.com/vzalabardo/tomorrowmanyers/internal/database"
	"github.com/vzalabardo/tomorrowmanyers/internal/repository"
)

func Run() {
	app := &cli.App{
		Name:  "tomorrowmanyers",
		Usage: "Plan events, collect RSVPs and sync a shared calendar",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "Path to the YAML config file."},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			syncCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

// loadConfig reads .env, then the config file, then sets up the logger.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	setupLogger(cfg.Log.Level)
	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "migrate", Usage: "Apply pending migrations before serving."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.Bool("migrate") {
				if err := migrateUp(cfg); err != nil {
					return err
				}
			}
			return serve(c.Context, cfg)
		},
	}
}

func migrateCommand() *cli.Command {
	withMigrator := func(fn func(m *database.Migrator, args cli.Args) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			m, err := database.NewMigrator(cfg.Database.DSN())
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(m, c.Args())
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema.",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations.",
				Action: withMigrator(func(m *database.Migrator, _ cli.Args) error {
					if err := m.Up(); err != nil {
						return err
					}
					log.Info().Msg("Migrations applied")
					return nil
				}),
			},
			{
				Name:      "down",
				Usage:     "Roll back N migrations (default 1).",
				ArgsUsage: "[N]",
				Action: withMigrator(func(m *database.Migrator, args cli.Args) error {
					steps := 1
					if args.Present() {
						n, err := strconv.Atoi(args.First())
						if err != nil {
							return fmt.Errorf("invalid step count %q", args.First())
						}
						steps = n
					}
					if err := m.Down(steps); err != nil {
						return err
					}
					log.Info().Int("steps", steps).Msg("Migrations rolled back")
					return nil
				}),
			},
			{
				Name:  "version",
				Usage: "Print the current schema version.",
				Action: withMigrator(func(m *database.Migrator, _ cli.Args) error {
					v, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Printf("version %d (dirty: %t)\n", v, dirty)
					return nil
				}),
			},
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run one calendar sync.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "owner-email", Required: true, Usage: "User who owns newly synced events."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			ctx := c.Context

			db, err := database.Connect(ctx, cfg.Database.DSN())
			if err != nil {
				return err
			}
			defer db.Close()

			owner, err := repository.NewUserRepository(db).GetByEmail(ctx, strings.ToLower(strings.TrimSpace(c.String("owner-email"))))
			if err != nil {
				return fmt.Errorf("failed to find owner: %w", err)
			}

			svc, err := newApp(ctx, cfg, db)
			if err != nil {
				return err
			}
			result, err := svc.sync.SyncExternalEvents(ctx, cfg.Calendar.CalendarID, owner.ID)
			if err != nil {
				return err
			}
			fmt.Println(result)
			if !result.Success {
				return cli.Exit("sync failed", 1)
			}
			return nil
		},
	}
}

func migrateUp(cfg *config.Config) error {
	m, err := database.NewMigrator(cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}
