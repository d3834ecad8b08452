package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/auth"
	"github.com/md-rashed-zaman/salonqueue/libs/config"
	"github.com/spf13/cobra"
)

// NewTokenCommand signs HS256 tokens for local environments where the gateway
// runs with JWT_SECRET instead of the provider's JWKS.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		secret     string
		sub        string
		role       string
		businessID string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}
			r := auth.Role(role)
			if !r.Valid() {
				return fmt.Errorf("invalid role %q", role)
			}
			if r != auth.RoleSuperAdmin && businessID == "" {
				return errors.New("--business-id is required for staff and business_admin")
			}

			now := time.Now()
			claims := auth.Claims{Sub: sub, BusinessID: businessID, Role: r, Iat: now.Unix(), Exp: now.Add(ttl).Unix()}
			token, err := auth.SignHS256(claims, secret)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), rootOpts, map[string]string{"token": token}, func(w io.Writer) {
				fmt.Fprintln(w, token)
			})
		},
	}

	cmd.Flags().StringVar(&secret, "secret", config.String("JWT_SECRET", ""), "HS256 signing secret")
	cmd.Flags().StringVar(&sub, "sub", "dev-user", "subject claim")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleBusinessAdmin), "staff|business_admin|super_admin")
	cmd.Flags().StringVar(&businessID, "business-id", "", "business the token is scoped to")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
