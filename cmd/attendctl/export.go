package main

import (
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"schoolattend/internal/attendance"
	"schoolattend/internal/export"
	"schoolattend/internal/report"
	"schoolattend/internal/roster"
)

var (
	exportDate  string
	exportGroup string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a group's attendance sheet for one day to an xlsx file",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDate, "date", "", "Date YYYY-MM-DD (default: today)")
	exportCmd.Flags().StringVar(&exportGroup, "group", "", "Group to export")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Output file (default: attendance_<date>_<group>.xlsx)")
	_ = exportCmd.MarkFlagRequired("group")
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := checkDate(exportDate); err != nil {
		return err
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	svc, err := e.service()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	date := exportDate
	if date == "" {
		date = svc.Today()
	}
	r, err := roster.NewProvider(e.cfg.RosterFile, svc, e.log).Roster(ctx)
	if err != nil {
		return err
	}
	persons, err := svc.ListPersons(ctx, attendance.PersonFilter{Group: exportGroup})
	if err != nil {
		return err
	}
	rows, err := svc.EventsOnDate(ctx, date, exportGroup)
	if err != nil {
		return err
	}
	sheet := report.NewAggregator(e.log).Export(date, exportGroup, r, persons, rows)

	buf, err := export.Workbook(export.Title(e.cfg.ExportTitle, date, exportGroup), sheet)
	if err != nil {
		return err
	}
	out := exportOut
	if out == "" {
		out = export.Filename(date, exportGroup)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return errors.Annotatef(err, "write %s", out)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d rows)\n", out, len(sheet.Rows))
	for _, w := range sheet.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is in group %s but not on the roster\n", w, exportGroup)
	}
	return nil
}
