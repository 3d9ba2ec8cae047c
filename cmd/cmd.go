// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func pagingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "page",
			Usage: "Page number",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "page-size",
			Usage: "Rows per page",
			Value: 50,
		},
	}
}

// playsCommand handles operations on recorded plays
func playsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "plays",
		Usage: "Inspect and manage recorded plays",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded plays",
				Flags: append(pagingFlags(),
					&cli.StringFlag{
						Name:  "sort",
						Usage: "Sort direction (asc or desc)",
						Value: "desc",
					},
					&cli.BoolFlag{
						Name:  "unsubmitted",
						Usage: "Count only unsubmitted plays",
					},
				),
				Action: r.PlaysList,
			},
			{
				Name:  "delete",
				Usage: "Delete unsubmitted plays",
				Flags: []cli.Flag{
					&cli.Int64SliceFlag{
						Name:  "id",
						Usage: "Play ID to delete (repeatable)",
					},
				},
				Action: r.PlaysDelete,
			},
			{
				Name:  "edit",
				Usage: "Edit an unsubmitted play's metadata",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Usage: "Play ID", Required: true},
					&cli.StringFlag{Name: "uri", Usage: "Track URI of the play", Required: true},
					&cli.StringFlag{Name: "artist", Usage: "Corrected artist", Required: true},
					&cli.StringFlag{Name: "title", Usage: "Corrected title", Required: true},
					&cli.StringFlag{Name: "album", Usage: "Corrected album"},
					&cli.BoolFlag{Name: "save-correction", Usage: "Also store a durable correction for the track URI"},
					&cli.BoolFlag{Name: "all-unsubmitted", Usage: "Apply to all unsubmitted plays of the track URI"},
				},
				Action: r.PlaysEdit,
			},
			{
				Name:  "submit",
				Usage: "Scrobble a single play immediately",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Usage: "Play ID", Required: true},
				},
				Action: r.PlaysSubmit,
			},
			{
				Name:  "approve",
				Usage: "Promote an auto-corrected play into a durable correction",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Usage: "Play ID", Required: true},
				},
				Action: r.PlaysApprove,
			},
		},
	}
}

// correctionsCommand handles operations on stored corrections
func correctionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "corrections",
		Usage: "Inspect and manage metadata corrections",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List stored corrections",
				Flags:  pagingFlags(),
				Action: r.CorrectionsList,
			},
			{
				Name:  "set",
				Usage: "Insert or replace the correction for a track URI",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "uri", Usage: "Track URI", Required: true},
					&cli.StringFlag{Name: "artist", Usage: "Corrected artist", Required: true},
					&cli.StringFlag{Name: "title", Usage: "Corrected title", Required: true},
					&cli.StringFlag{Name: "album", Usage: "Corrected album"},
				},
				Action: r.CorrectionsSet,
			},
			{
				Name:  "delete",
				Usage: "Delete the correction for a track URI",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "uri", Usage: "Track URI", Required: true},
				},
				Action: r.CorrectionsDelete,
			},
		},
	}
}

// register wires all commands to the runner
func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "init",
			Usage: "Write an example configuration file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "config",
					Aliases: []string{"c"},
					Usage:   "Path for the configuration file",
					Value:   "config.toml",
				},
			},
			Action: r.InitConfig,
		},
		playsCommand(r),
		correctionsCommand(r),
		{
			Name:  "catchup",
			Usage: "Submit the unsubmitted backlog in batches",
			Flags: []cli.Flag{
				&cli.Int64Flag{
					Name:  "checkpoint",
					Usage: "Only submit plays with IDs at or below this checkpoint",
				},
			},
			Action: r.Catchup,
		},
		{
			Name:  "db",
			Usage: "Database maintenance",
			Commands: []*cli.Command{
				{
					Name:   "rollback",
					Usage:  "Roll back the most recent schema migration",
					Action: r.DbRollback,
				},
			},
		},
	}
}
