package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"warden/internal/catalog"
)

func sealCmd() *cobra.Command {
	var kdf string
	cmd := &cobra.Command{
		Use:   "seal <manifest> [output]",
		Short: "Protect a module manifest with a passphrase",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			dst := args[0] + catalog.SealedExt
			if len(args) == 2 {
				dst = args[1]
			}
			if err := catalog.SealFile(args[0], dst, passphrase, catalog.KDF(kdf)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sealed manifest written to %s\n", dst)
			return nil
		},
	}
	cmd.Flags().StringVar(&kdf, "kdf", string(catalog.KDFScrypt), "key derivation: scrypt or argon2id")
	return cmd
}
