package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/jumpinfo"
)

var infoOffset uint64

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Scan one GRIB message and print the JumpInfo gribjump would cache for it",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		path := args[0]
		acc, err := accessor.NewFile(path)
		if err != nil {
			die("open %s: %s", path, err)
		}
		defer acc.Close()

		info, err := jumpinfo.Scan(context.Background(), acc, infoOffset)
		if err != nil {
			die("scan %s at offset %d: %s", path, infoOffset, err)
		}

		rows := [][]string{}
		addRow := func(field, value string, args ...any) {
			rows = append(rows, []string{field, fmt.Sprintf(value, args...)})
		}
		addRow("edition", "%d", info.Edition)
		addRow("packing", "%s", info.PackingType)
		addRow("bits per value", "%d", info.BitsPerValue)
		addRow("reference value", "%g", info.ReferenceValue)
		addRow("binary scale factor", "%d", info.BinaryScaleFactor)
		addRow("decimal scale factor", "%d", info.DecimalScaleFactor)
		addRow("number of data points", "%d", info.NumberOfDataPoints)
		addRow("number of values", "%d", info.NumberOfValues)
		addRow("has bitmap", "%t", info.OffsetBeforeBitmap != 0)
		addRow("spherical harmonics", "%t", info.SphericalHarmonics)
		addRow("grid hash", "%s", info.MD5GridSection)
		addRow("total length", "%d", info.TotalLength)
		if info.PackingType == jumpinfo.PackingCCSDS {
			addRow("ccsds rsi", "%d", info.CcsdsRSI)
			addRow("ccsds block size", "%d", info.CcsdsBlockSize)
			addRow("ccsds rsi count", "%d", len(info.CcsdsOffsets))
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"field", "value"})
		table.AppendBulk(rows)
		table.Render()
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().Uint64Var(&infoOffset, "offset", 0, "byte offset of the GRIB message within the file")
}
