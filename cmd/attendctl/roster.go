package main

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"schoolattend/internal/roster"
)

var rosterFile string

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Work with the staff roster",
}

var rosterImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Create a person for every roster entry not stored yet",
	Long: `Creates persons in group "Unknown" with placeholder cards TBD_<seq>.
Names already stored (compared case- and whitespace-insensitively) are left alone.`,
	Args: cobra.NoArgs,
	RunE: runRosterImport,
}

func init() {
	rosterImportCmd.Flags().StringVar(&rosterFile, "file", "", "Roster YAML file (default: ROSTER_FILE)")
	rosterCmd.AddCommand(rosterImportCmd)
}

func runRosterImport(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	path := rosterFile
	if path == "" {
		path = e.cfg.RosterFile
	}
	if path == "" {
		return errors.New("no roster file: pass --file or set ROSTER_FILE")
	}
	r, err := roster.Load(path)
	if err != nil {
		return err
	}
	svc, err := e.service()
	if err != nil {
		return err
	}
	res, err := roster.Import(commandContext(cmd), svc, r)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %d persons\n", res.Created)
	for _, name := range res.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "skipped %s\n", name)
	}
	return nil
}
