package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export belief records as JSON",
		Long:  "Write every belief record to stdout in the belief file format, keyed by <service>|<hour>.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := store.Export(cmd.Context(), s, os.Stdout); err != nil {
		exitErr("export", err)
	}
}
