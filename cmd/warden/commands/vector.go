package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"warden/internal/domain"
	"warden/internal/protocol/warden"
)

func vectorCmd() *cobra.Command {
	var (
		probe string
		magic uint32
	)
	cmd := &cobra.Command{
		Use:   "vector [seed-hex]",
		Short: "Print the challenge transform and check digests for a seed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := warden.DefaultSeed
			if len(args) == 1 {
				s, err := domain.ParseSeed(args[0])
				if err != nil {
					return err
				}
				seed = s
			}
			w := warden.Words(seed)
			in, out := warden.Transform(seed)
			digest := warden.ExpectedHashResult(seed)
			check := warden.ExpectedCheckResult([]byte(probe), magic)

			o := cmd.OutOrStdout()
			fmt.Fprintf(o, "Seed:     %s\n", seed)
			fmt.Fprintf(o, "Words:    %08X %08X %08X %08X\n", w[0], w[1], w[2], w[3])
			fmt.Fprintf(o, "In key:   %X\n", in[:])
			fmt.Fprintf(o, "Out key:  %X\n", out[:])
			fmt.Fprintf(o, "Digest:   %X\n", digest[:])
			fmt.Fprintf(o, "Check:    %q magic %08X\n", probe, magic)
			fmt.Fprintf(o, "  SHA1:   %X\n", check.SHA1[:])
			fmt.Fprintf(o, "  MD5:    %X\n", check.MD5[:])
			return nil
		},
	}
	cmd.Flags().StringVar(&probe, "probe", warden.DefaultProbe, "check probe string")
	cmd.Flags().Uint32Var(&magic, "magic", warden.DefaultMagic, "check magic suffix")
	return cmd
}
