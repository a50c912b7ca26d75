package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Record an observed outcome for a slot",
		Long: "Fold one full/not-full observation into the slot's Beta counters and print\n" +
			"the updated p_hat. The discrete prior is not changed.",
		Run: runObserve,
	}

	slotFlags(cmd)
	cmd.Flags().Bool("full", false, "The slot was fully booked")
	cmd.Flags().String("source", string(model.SourceObserved), "Observation source: observed or decision")

	RootCmd.AddCommand(cmd)
}

func runObserve(cmd *cobra.Command, args []string) {
	key, err := slotKey(cmd)
	if err != nil {
		exitErr("observe", err)
	}
	full, _ := cmd.Flags().GetBool("full")
	source, _ := cmd.Flags().GetString("source")
	if !model.ValidSources[model.Source(source)] {
		exitErr("observe", fmt.Errorf("invalid source %q", source))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	obs := model.Observation{Key: key, IsFull: full, Source: model.Source(source)}
	pHat, err := s.Update(cmd.Context(), obs)
	if err != nil {
		exitErr("observe", err)
	}
	if err := s.Save(cmd.Context()); err != nil {
		exitErr("save", err)
	}
	met.BeliefUpdate(obs)
	logger.Info("recorded observation",
		zap.String("slot", key.String()),
		zap.Bool("full", full),
		zap.String("source", source),
		zap.Float64("p_hat", pHat))

	fmt.Printf(`{"ok":true,"service":%q,"hour":%d,"p_hat":%v}`+"\n", key.Service, key.Hour, pHat)
}
