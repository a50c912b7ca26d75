package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import belief records from JSON",
		Long: "Replace the store's records with a belief file read from stdin. Expects the\n" +
			"format produced by export. Nothing is written if any record is malformed.",
		Run: runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := store.Import(cmd.Context(), s, os.Stdin, "stdin")
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
