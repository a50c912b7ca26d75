package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/posterior"
)

func init() {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate a slot's occupancy from its prior and availability",
		Run:   runEstimate,
	}

	slotFlags(cmd)
	cmd.Flags().String("observed", "", "Availability observation: present or absent (required)")
	cmd.Flags().String("method", "", "Point estimate: mean or map (default from config)")

	cmd.MarkFlagRequired("observed")

	RootCmd.AddCommand(cmd)
}

type estimateResult struct {
	Service   string             `json:"service"`
	Hour      int                `json:"hour"`
	Present   bool               `json:"present"`
	Method    posterior.Method   `json:"method"`
	Posterior model.Distribution `json:"posterior"`
	Estimate  float64            `json:"estimate"`
}

func runEstimate(cmd *cobra.Command, args []string) {
	key, err := slotKey(cmd)
	if err != nil {
		exitErr("estimate", err)
	}
	observed, _ := cmd.Flags().GetString("observed")
	methodName, _ := cmd.Flags().GetString("method")
	if methodName == "" {
		methodName = cfg.Fusion.Method
	}

	var present bool
	switch observed {
	case "present":
		present = true
	case "absent":
	default:
		exitErr("estimate", fmt.Errorf("--observed must be present or absent, got %q", observed))
	}
	method, err := posterior.ParseMethod(methodName)
	if err != nil {
		exitErr("estimate", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rec, err := s.Get(cmd.Context(), key)
	if err != nil {
		exitErr("get", err)
	}
	post, err := posterior.Posterior(rec.Prior, present)
	if err != nil {
		exitErr("posterior", err)
	}
	est, err := posterior.Estimate(post, method)
	if err != nil {
		exitErr("estimate", err)
	}

	printJSON(estimateResult{
		Service:   key.Service,
		Hour:      key.Hour,
		Present:   present,
		Method:    method,
		Posterior: post,
		Estimate:  est,
	})
}
