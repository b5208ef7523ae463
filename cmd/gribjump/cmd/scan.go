package cmd

import (
	"context"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ecmwf/gribjump/pkg/catalogue"
)

var scanIndexPath string

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Index every GRIB file under dir into the catalogue database",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		dir := args[0]
		indexPath := scanIndexPath
		if indexPath == "" {
			indexPath = filepath.Join(dir, "gribjump.index.db")
		}

		files, err := catalogue.GribFiles(dir)
		if err != nil {
			die("list %s: %s", dir, err)
		}

		l, err := catalogue.NewSQLiteLister(indexPath)
		if err != nil {
			die("open index %s: %s", indexPath, err)
		}
		defer l.Close()

		ctx := context.Background()
		bar := progressbar.Default(int64(len(files)), "scanning")
		for _, path := range files {
			if err := l.ScanFile(ctx, path); err != nil {
				die("scan %s: %s", path, err)
			}
			if err := bar.Add(1); err != nil {
				die("update progress bar: %s", err)
			}
		}
		color.Green("indexed %d file(s) from %s into %s", len(files), dir, indexPath)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanIndexPath, "index", "", "catalogue database path (default dir/gribjump.index.db)")
}
