package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ikuuu_checkin/internal/model"
)

var (
	dumpEvents bool
	jsonOutput bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the check-in once and prints the report.",
	RunE:  runOnce,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&dumpEvents, "events", false, "print the collected event log after the report")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	eng, err := a.engine()
	if err != nil {
		return err
	}
	report, err := eng.Run(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(report)
	fmt.Println()
	fmt.Print(report.Markdown())

	if dumpEvents {
		fmt.Println()
		for _, msg := range a.bus.Snapshot() {
			b, _ := json.Marshal(msg)
			fmt.Println(string(b))
		}
	}
	return nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func printReport(r model.Report) {
	t := newTable()
	t.SetTitle(r.Title())
	t.AppendRows([]table.Row{
		{"运行 ID", r.RunID},
		{"域名", r.Host},
		{"账号", r.DisplayName()},
		{"登录", loginLabel(r.LoggedIn)},
		{"签到", r.Checkin.Display()},
		{"剩余流量", r.Quota.Remaining},
		{"今日已用", r.Quota.UsedToday},
		{"总流量", r.Quota.Total},
		{"耗时", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()},
	})
	t.Render()
}

func loginLabel(ok bool) string {
	if ok {
		return "成功"
	}
	return "失败"
}
