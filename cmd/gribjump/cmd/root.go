package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ecmwf/gribjump/internal/config"
)

var cfgFile string
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "gribjump",
	Short: "Byte-range extraction of values from GRIB messages without a full decode",
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func die(s string, args ...any) {
	fmt.Fprintln(os.Stderr, fmt.Sprintf(s, args...))
	os.Exit(1)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.gribjump.yaml)")
}

func initConfig() {
	loaded, err := config.Load(cfgFile)
	cobra.CheckErr(err)
	cfg = loaded
}
