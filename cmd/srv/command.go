package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	s.app = cli.NewApp()
	s.app.Action = cli.ShowAppHelp
	s.app.Name = "authserver"
	s.app.Usage = "Credential lifecycle service"
	s.app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   "config.toml",
			EnvVars: []string{"CONFIG_FILE"},
			Usage:   "path of the toml configuration file",
		},
	}
	s.app.Before = s.loadConfig
	s.app.Commands = []*cli.Command{
		{
			Action:      s.startApi,
			Name:        "api",
			Usage:       "Start service api",
			Category:    "Api",
			Description: `Serves registration, login, social login and token refresh over http.`,
		},
		{
			Action:      s.startCron,
			Name:        "cron",
			Usage:       "Start the reconciliation loop",
			Category:    "Worker",
			Description: `Refreshes provider tokens, deletes expired sessions and sweeps authorization states.`,
		},
		{
			Action:      s.startMigrate,
			Name:        "migrate",
			Usage:       "Migrate the database schema",
			Category:    "Database",
			Description: `Applies every pending schema migration then exits.`,
		},
	}
}
