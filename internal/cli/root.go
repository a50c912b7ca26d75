// Package cli implements the slotbelief CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/config"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/logging"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/metrics"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/store"
)

var (
	configPath  string
	storePath   string
	backendFlag string
	logLevel    string
	formatFlag  string

	cfg    *config.Config
	logger = zap.NewNop()
	met    *metrics.Metrics
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "slotbelief",
	Short: "Bayesian occupancy estimates for bookable slots",
	Long: "Builds per-slot Beta-Binomial priors from booking history, keeps them up to date\n" +
		"with observed outcomes, and fuses them with a classifier's P(full).",
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file, YAML or TOML (default: $SLOTBELIEF_CONFIG)")
	RootCmd.PersistentFlags().StringVarP(&storePath, "store", "s", "", "Belief store path (default from config, priors.json)")
	RootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Store backend: json or sqlite")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = os.Getenv("SLOTBELIEF_CONFIG")
	}
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if storePath != "" {
		c.Store.Path = storePath
	}
	if backendFlag != "" {
		c.Store.Backend = backendFlag
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if err := c.Validate(); err != nil {
		return err
	}

	l, err := logging.New(c.Logging.Level, c.Logging.JSON)
	if err != nil {
		return err
	}
	cfg, logger, met = c, l, metrics.New()
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	flush()
}

// flush writes the metrics textfile and syncs the logger. It runs on every
// exit path, including exitErr, which bypasses PersistentPostRun.
func flush() {
	if cfg != nil {
		if err := met.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("write metrics textfile", zap.Error(err))
		}
	}
	_ = logger.Sync()
}

func openStore() (store.Store, error) {
	s, err := store.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened store",
		zap.String("backend", cfg.Store.Backend),
		zap.String("path", cfg.Store.Path))
	return s, nil
}

// slotFlags registers --service and --hour on cmd.
func slotFlags(cmd *cobra.Command) {
	cmd.Flags().String("service", "", "Service name")
	cmd.Flags().Int("hour", -1, "Hour of day")
}

func slotKey(cmd *cobra.Command) (model.SlotKey, error) {
	svc, _ := cmd.Flags().GetString("service")
	hour, _ := cmd.Flags().GetInt("hour")
	if svc == "" || !cmd.Flags().Changed("hour") {
		return model.SlotKey{}, fmt.Errorf("--service and --hour are required")
	}
	return model.SlotKey{Service: svc, Hour: hour}, nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	logger.Debug(msg, zap.Error(err))
	met.RunFailure(msg)
	flush()
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
