package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"kazini/internal/pkg/jwt"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint an access token for a user",
	Long: `Mint a signed access token for the given user id using auth.jwt_secret.
Intended for local development and smoke tests against /api/chatbot.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	flags := tokenCmd.Flags()
	flags.String("username", "", "optional username claim")
	flags.Duration("expiry", 0, "token lifetime (default: auth.access_token_expiry)")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured (set KAZINI_AUTH_JWT_SECRET)")
	}

	expiry, _ := cmd.Flags().GetDuration("expiry")
	if expiry <= 0 {
		expiry = cfg.Auth.AccessTokenExpiry
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	username, _ := cmd.Flags().GetString("username")

	token, err := jwt.NewJWT(secret, expiry).GenerateToken(args[0], username)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	log.Debug().Str("user_id", args[0]).Dur("expiry", expiry).Msg("token generated")
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
