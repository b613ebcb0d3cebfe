package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"schoolattend/internal/attendance"
	"schoolattend/internal/notify"
	"schoolattend/internal/queue"
	"schoolattend/internal/store"
)

var reportDate string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Attendance reports",
}

var reportSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send the daily attendance report to Telegram",
	Long: `With QUEUE_BACKEND=redis the report is queued for the worker.
Otherwise it is built and sent right away.`,
	Args: cobra.NoArgs,
	RunE: runReportSend,
}

func init() {
	reportSendCmd.Flags().StringVar(&reportDate, "date", "", "Report date YYYY-MM-DD (default: today)")
	reportCmd.AddCommand(reportSendCmd)
}

func runReportSend(cmd *cobra.Command, args []string) error {
	if err := checkDate(reportDate); err != nil {
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

	date := reportDate
	if date == "" {
		date = svc.Today()
	}

	if e.cfg.QueueBackend == "redis" {
		redisClient := store.NewRedis(e.cfg.RedisOptions())
		defer redisClient.Close()
		q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey, e.log)
		id, err := notify.NewDispatcher(q, e.cfg.NotifyTimeout()).EnqueueReport(ctx, date)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "report for %s queued as %s\n", date, id)
		return nil
	}

	rows, err := svc.EventsOnDate(ctx, date, "")
	if err != nil {
		return err
	}
	sender := notify.NewSender(e.cfg.TelegramAPIURL, e.cfg.TelegramBotToken, e.cfg.TelegramChatID, e.cfg.NotifyTimeout(), e.log)
	if err := sender.SendText(ctx, notify.BuildReport(date, rows)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "report for %s sent (%d scans)\n", date, countScans(rows))
	return nil
}

func countScans(rows []attendance.EventRow) int {
	n := 0
	for _, r := range rows {
		if r.Kind.Valid() {
			n++
		}
	}
	return n
}
