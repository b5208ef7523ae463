package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ecmwf/gribjump/pkg/catalogue"
)

var (
	findIndexPath string
	findParam     string
	findDate      string
	findTime      string
	findYear      string
	findMonth     string
	findAxes      bool
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Query the catalogue database for matching (file, offset) entries",
	Run: func(_ *cobra.Command, _ []string) {
		if findIndexPath == "" {
			die("--index is required")
		}
		l, err := catalogue.NewSQLiteLister(findIndexPath)
		if err != nil {
			die("open index %s: %s", findIndexPath, err)
		}
		defer l.Close()

		ctx := context.Background()
		if findAxes {
			printAxes(ctx, l)
			return
		}

		entries, err := l.List(ctx, catalogue.Query{
			Param: findParam,
			Date:  findDate,
			Time:  findTime,
			Year:  findYear,
			Month: findMonth,
		})
		if err != nil {
			die("find: %s", err)
		}
		printEntries(entries)
	},
}

func printEntries(entries []catalogue.Entry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"path", "offset", "param", "date", "time"})
	for _, e := range entries {
		table.Append([]string{e.Path, strconv.FormatUint(e.Offset, 10), e.Param, e.Date, e.Time})
	}
	table.Render()
}

func printAxes(ctx context.Context, l *catalogue.SQLiteLister) {
	axes, err := l.Axes(ctx)
	if err != nil {
		die("axes: %s", err)
	}
	keys := make([]string, 0, len(axes))
	for k := range axes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %v\n", k, axes[k])
	}
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().StringVar(&findIndexPath, "index", "", "catalogue database path")
	findCmd.Flags().StringVar(&findParam, "param", "", "filter by param (discipline.category.number)")
	findCmd.Flags().StringVar(&findDate, "date", "", "filter by date (YYYYMMDD)")
	findCmd.Flags().StringVar(&findTime, "time", "", "filter by time (HHMM)")
	findCmd.Flags().StringVar(&findYear, "year", "", "filter by year")
	findCmd.Flags().StringVar(&findMonth, "month", "", "filter by month")
	findCmd.Flags().BoolVar(&findAxes, "axes", false, "print the distinct indexed values for every field instead of matching entries")
}
