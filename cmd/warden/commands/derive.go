package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"warden/internal/crypto"
)

func deriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive <secret-hex>",
		Short: "Print the directional keys for a session secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("secret: %w", err)
			}
			if len(secret) == 0 {
				return fmt.Errorf("secret required")
			}
			in, out := crypto.DeriveDirectionalKeys(secret)
			fmt.Fprintf(cmd.OutOrStdout(), "Inbound:  %X\nOutbound: %X\n", in[:], out[:])
			return nil
		},
	}
}
