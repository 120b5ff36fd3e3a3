package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/banzuke/banzuke/internal/core/basho"
	"github.com/banzuke/banzuke/internal/output"
)

var (
	bashosFrom string
	bashosTo   string
)

var bashosCmd = &cobra.Command{
	Use:   "bashos",
	Short: "List basho ids, newest first",
	Long: `List basho ids between --from and --to inclusive, newest first. This is
computed locally and spends no upstream budget.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := basho.Normalize(bashosTo, time.Now())
		if err != nil {
			return err
		}
		ids, err := basho.IDList(bashosFrom, to)
		if err != nil {
			return err
		}
		return writeOutput(cmd, "bashos", output.BashoIDs(ids))
	},
}

func init() {
	rootCmd.AddCommand(bashosCmd)
	bashosCmd.Flags().StringVar(&bashosFrom, "from", basho.FirstID, "Oldest basho id YYYYMM")
	bashosCmd.Flags().StringVar(&bashosTo, "to", "", "Newest basho id YYYYMM (default: current basho)")
}
