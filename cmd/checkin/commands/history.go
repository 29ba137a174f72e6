package commands

import (
	"errors"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [--limit n]",
	Short: "Lists recorded runs, newest first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if a.store == nil {
			return errors.New("run history is disabled: set storage.sqlitePath or IKUUU_SQLITE_PATH")
		}

		runs, err := a.store.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		t := newTable()
		t.AppendHeader(table.Row{"时间", "域名", "账号", "登录", "签到", "剩余流量", "今日已用"})
		for _, r := range runs {
			t.AppendRow(table.Row{
				r.StartedAt.Format(time.DateTime),
				r.Host,
				r.DisplayName(),
				loginLabel(r.LoggedIn),
				r.Checkin.Display(),
				r.Quota.Remaining,
				r.Quota.UsedToday,
			})
		}
		t.Render()
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
