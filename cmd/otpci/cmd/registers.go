package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTracePCI/pkg/pci"
	"github.com/OpenTraceLab/OpenTracePCI/pkg/regname"
	"github.com/spf13/cobra"
)

var registersCmd = &cobra.Command{
	Use:   "registers",
	Short: "List the known register and capability names",
	Long: `List every register name accepted in register specs, with its
capability id, offset and implicit access width. Capability entries carry
no width; specs using them need an explicit .B/.W/.L suffix.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "cap  pos w name")
		for _, e := range regname.All() {
			switch e.Cap.Kind {
			case pci.CapNormal:
				fmt.Fprintf(out, "  %02x  -- - %s\n", e.Cap.ID, e.Name)
			case pci.CapExtended:
				fmt.Fprintf(out, "E%03x  -- - %s\n", e.Cap.ID, e.Name)
			default:
				fmt.Fprintf(out, "      %02x %c %s\n", e.Offset, widthChar(e.Width), e.Name)
			}
		}
	},
}

func widthChar(width uint32) byte {
	switch width {
	case 1:
		return 'B'
	case 2:
		return 'W'
	case 4:
		return 'L'
	}
	return '-'
}

func init() {
	rootCmd.AddCommand(registersCmd)
}
