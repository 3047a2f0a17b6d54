package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "condo/internal/jwt_token"
	"condo/internal/platform/redis"
	id "condo/pkg/domain"
)

func tokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or revoke API bearer tokens",
	}
	cmd.AddCommand(issueTokenCommand(), revokeTokenCommand())
	return cmd
}

func issueTokenCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue <participant>",
		Short: "Sign an access token for a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			participant, err := id.ParseParticipantID(args[0])
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Server.TokenTTL
			}
			svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, tokenIssuer, tokenAudience)
			tok, err := svc.GenerateAccessToken(participant, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to CONDO_TOKEN_TTL)")
	return cmd
}

func revokeTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a token until it expires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			log := commonRun(cfg)
			svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, tokenIssuer, tokenAudience)
			claims, err := svc.ValidateToken(args[0])
			if err != nil {
				return err
			}
			rdb, err := redis.New(cmd.Context(), cfg.Redis)
			if err != nil {
				return err
			}
			if rdb == nil {
				return errors.New("revocation needs CONDO_REDIS_URL")
			}
			defer rdb.Close()
			if err := jwttoken.NewRedisRevocations(rdb.Client).Revoke(cmd.Context(), claims.JTI, claims.ExpiresAt); err != nil {
				return err
			}
			log.Info("token revoked", "jti", claims.JTI, "participant", claims.Participant)
			return nil
		},
	}
}
