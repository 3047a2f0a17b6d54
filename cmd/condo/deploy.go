package main

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"condo/internal/condominium/metrics"
	id "condo/pkg/domain"
)

func deployCommand() *cobra.Command {
	var deployer string
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a fresh backend into Postgres and print its address",
		Long: "Deploy creates a new condominium backend with the configured layout and quota.\n" +
			"The running adapter only starts using it after an upgrade.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd.Context())
			log := commonRun(cfg)
			if deployer == "" {
				deployer = cfg.Condominium.Owner
			}
			who, err := id.ParseParticipantID(deployer)
			if err != nil {
				return fmt.Errorf("deployer: %w", err)
			}

			in, closeInfra, err := openInfra(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeInfra()
			if in.db == nil {
				return errors.New("deploy needs CONDO_DATABASE_URL; in-memory backends do not outlive the process")
			}

			h, err := newHost(cfg, in, log, metrics.New(prometheus.NewRegistry()))
			if err != nil {
				return err
			}
			if err := h.Load(cmd.Context()); err != nil {
				return err
			}
			backend, err := h.Deploy(cmd.Context(), who)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), backend.Address())
			return nil
		},
	}
	cmd.Flags().StringVar(&deployer, "deployer", "", "participant that becomes the first manager (defaults to CONDO_OWNER)")
	return cmd
}
