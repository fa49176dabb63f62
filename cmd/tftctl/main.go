package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"tft-tracker/internal/constants"
	"tft-tracker/internal/database"
	"tft-tracker/internal/export"
	fxmodules "tft-tracker/internal/fx"
	"tft-tracker/internal/service"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

type deps struct {
	db          *sql.DB
	tournaments *service.TournamentService
	standings   *service.StandingsService
}

func main() {
	app := &cli.App{
		Name:  "tftctl",
		Usage: "administer the tournament standings database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "path to the sqlite database",
				EnvVars: []string{"DB_PATH"},
			},
		},
		Before: func(c *cli.Context) error {
			if path := c.String("db"); path != "" {
				return os.Setenv("DB_PATH", path)
			}
			return nil
		},
		Commands: []*cli.Command{
			migrateCommand(),
			recalculateCommand(),
			standingsCommand(),
			exportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withDeps starts the storage and service graph without the HTTP server.
func withDeps(ctx context.Context, fn func(d deps) error) error {
	var d deps
	app := fx.New(
		fxmodules.Core,
		fx.NopLogger,
		fx.Populate(&d.db, &d.tournaments, &d.standings),
	)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer app.Stop(context.Background())

	return fn(d)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending schema migrations",
		Action: func(c *cli.Context) error {
			return withDeps(c.Context, func(d deps) error {
				version, err := database.SchemaVersion(d.db)
				if err != nil {
					return err
				}
				fmt.Printf("schema at version %d\n", version)
				return nil
			})
		},
	}
}

func recalculateCommand() *cli.Command {
	return &cli.Command{
		Name:  "recalculate",
		Usage: "rebuild standings from the result ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tournament", Aliases: []string{"t"}, Usage: "tournament id"},
			&cli.BoolFlag{Name: "all", Usage: "rebuild every tournament"},
		},
		Action: func(c *cli.Context) error {
			id, all := c.String("tournament"), c.Bool("all")
			if (id == "") == !all {
				return cli.Exit("pass exactly one of --tournament or --all", 2)
			}

			return withDeps(c.Context, func(d deps) error {
				if all {
					rebuilt, err := d.standings.RecalculateAll(c.Context)
					fmt.Printf("rebuilt %d tournaments\n", rebuilt)
					return err
				}

				res, err := d.standings.Recalculate(c.Context, id)
				if err != nil {
					return err
				}
				if res.Discarded {
					fmt.Printf("%s: newer standings already stored\n", id)
					return nil
				}
				fmt.Printf("%s: %d players at ledger version %d\n", id, res.PlayerCount, res.LedgerVersion)
				return nil
			})
		},
	}
}

func standingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "standings",
		Usage: "print the stored leaderboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tournament", Aliases: []string{"t"}, Usage: "tournament id", Required: true},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "rows to print"},
		},
		Action: func(c *cli.Context) error {
			return withDeps(c.Context, func(d deps) error {
				snap, err := d.standings.GetStandings(c.Context, c.String("tournament"), c.Int("limit"))
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RANK\tPLAYER\tPOINTS\tGAMES\tTOP4\tRECENT")
				for _, s := range snap.Standings {
					recent := make([]string, len(s.RecentPlacements))
					for i, p := range s.RecentPlacements {
						recent[i] = fmt.Sprint(p)
					}
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\n",
						s.Rank, s.PlayerID, s.TotalPoints, s.GamesPlayed, s.TopFourCount, strings.Join(recent, " "))
				}
				return tw.Flush()
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write the stored leaderboard to an xlsx file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tournament", Aliases: []string{"t"}, Usage: "tournament id", Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file", Required: true},
		},
		Action: func(c *cli.Context) error {
			id := c.String("tournament")
			return withDeps(c.Context, func(d deps) error {
				t, err := d.tournaments.GetTournament(c.Context, id)
				if err != nil {
					return err
				}
				snap, err := d.standings.GetStandings(c.Context, id, constants.MaxStandingsLimit)
				if err != nil {
					return err
				}
				participants, err := d.tournaments.ListParticipants(c.Context, id)
				if err != nil {
					return err
				}
				names := make(map[string]string, len(participants))
				for _, p := range participants {
					names[p.PlayerID] = p.DisplayName
				}

				f, err := os.Create(c.String("out"))
				if err != nil {
					return err
				}
				if err := export.WriteStandingsXLSX(f, snap, t.LobbySize, names); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Printf("wrote %d rows to %s\n", len(snap.Standings), c.String("out"))
				return nil
			})
		},
	}
}
