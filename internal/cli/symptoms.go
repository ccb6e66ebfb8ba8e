// symptoms.go implements "symptomctl symptoms", listing the selectable catalog.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSymptomsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "symptoms",
		Short: "List the symptoms offered on the selection screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(opts.contentPath)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, g := range cat.Visible() {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "%s (%s)\n", g.Name, g.Category)
				for _, def := range g.Symptoms {
					fmt.Fprintf(w, "  %-18s %s\n", def.ID, def.Name)
				}
			}
			return nil
		},
	}
}
