package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/splatctl/internal/history"
)

var errHistoryDisabled = errors.New("run history is disabled in the configuration")

func (a *app) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent renderer runs",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if a.cfg.History.Disabled {
				return errHistoryDisabled
			}

			store, err := history.Open(a.cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.opts.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tEXIT\tSCRIPT\tSOURCE")

			for _, run := range runs {
				exit := "running"
				if run.ExitCode != nil {
					exit = strconv.Itoa(*run.ExitCode)
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					run.Id.String()[:8],
					run.StartedAt.Local().Format(time.DateTime),
					run.Duration().Round(time.Second),
					exit, run.Script, run.Source)
			}

			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show, 0 for all")

	return cmd
}
