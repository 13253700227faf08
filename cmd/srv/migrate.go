package main

import "github.com/urfave/cli/v2"

// startMigrate applies pending migrations. Other commands migrate on start
// as well, this one exits right after.
func (s *srv) startMigrate(*cli.Context) error {
	return s.loadDatabase()
}
