package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List belief records",
		Run:   runList,
	}

	cmd.Flags().String("service", "", "Filter by service")
	cmd.Flags().IntP("limit", "l", 0, "Max results (0 for all)")
	cmd.Flags().Bool("keys-only", false, "Only output <service>|<hour> keys")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	service, _ := cmd.Flags().GetString("service")
	limit, _ := cmd.Flags().GetInt("limit")
	keysOnly, _ := cmd.Flags().GetBool("keys-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	recs, err := s.List(cmd.Context(), store.ListParams{
		Service: service,
		Limit:   limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	switch {
	case keysOnly:
		for _, r := range recs {
			fmt.Println(r.Key())
		}
	case formatFlag == "text":
		for _, r := range recs {
			fmt.Printf("%s\tp_full=%.4f\tn_total=%d\tn_full=%d\n", r.Key(), r.Mean(), r.NTotal, r.NFull)
		}
	default:
		if recs == nil {
			fmt.Println("[]")
			return
		}
		printJSON(recs)
	}
}
