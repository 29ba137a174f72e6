package commands

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Finds the panel host the next run would use, without logging in.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.resolver()
		if err != nil {
			return err
		}
		host := res.Resolve(cmd.Context())

		t := newTable()
		t.AppendRow(table.Row{"主域名", res.Primary()})
		t.AppendRow(table.Row{"当前可用", host})
		if a.store != nil {
			if rec, ok, err := a.store.GetLastHost(cmd.Context()); err == nil && ok {
				t.AppendRow(table.Row{"上次登录成功", rec.Host + " (" + rec.ResolvedAt.Format(time.DateTime) + ")"})
			}
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
