package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"warden/internal/catalog"
)

func modulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List, identify and pack catalog modules",
	}
	cmd.AddCommand(modulesListCmd(), modulesIDCmd(), modulesPackCmd())
	return cmd
}

func modulesListCmd() *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the modules of a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.LoadManifest(manifest, passphrase)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPLATFORMS\tID\tSIZE\tCIPHER\tSEED")
			for _, m := range cat.Modules() {
				platforms := make([]string, 0, len(m.Platforms))
				for _, p := range m.Platforms {
					platforms = append(platforms, string(p))
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					m.Name, strings.Join(platforms, ","), m.ID, m.CompressedSize(), m.Suite, m.Seed)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&manifest, "manifest", "modules.json", "module manifest")
	return cmd
}

func modulesIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id <payload>",
		Short: "Print the module id (MD5) of a compressed payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if strings.HasSuffix(args[0], catalog.ArchiveExt) {
				if b, err = catalog.Unpack(b); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), catalog.ModuleID(b))
			return nil
		},
	}
}

func modulesPackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pack <payload> [archive]",
		Short: "Store a payload as an LZ4 archive",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			dst := args[0] + catalog.ArchiveExt
			if len(args) == 2 {
				dst = args[1]
			}
			if err := catalog.PackFile(dst, b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Packed %s (id %s)\n", dst, catalog.ModuleID(b))
			return nil
		},
	}
}
