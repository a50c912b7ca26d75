package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a slot's belief record",
		Run:   runGet,
	}

	slotFlags(cmd)
	cmd.Flags().Bool("history", false, "Include the observation log, newest first (sqlite backend)")
	cmd.Flags().IntP("limit", "l", 20, "Max history entries")

	RootCmd.AddCommand(cmd)
}

type getResult struct {
	*model.BeliefRecord
	PFull   float64                  `json:"p_full"`
	History []store.ObservationEntry `json:"history,omitempty"`
}

func runGet(cmd *cobra.Command, args []string) {
	key, err := slotKey(cmd)
	if err != nil {
		exitErr("get", err)
	}
	history, _ := cmd.Flags().GetBool("history")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rec, err := s.Get(cmd.Context(), key)
	if err != nil {
		exitErr("get", err)
	}
	res := getResult{BeliefRecord: rec, PFull: rec.Mean()}

	if history {
		sq, ok := s.(*store.SQLiteStore)
		if !ok {
			exitErr("get", fmt.Errorf("--history needs the %s backend", store.BackendSQLite))
		}
		res.History, err = sq.History(cmd.Context(), key, limit)
		if err != nil {
			exitErr("history", err)
		}
	}

	printJSON(res)
}
