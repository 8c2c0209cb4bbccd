package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// APIInfo is one configured downstream API as listed by 'apikit apis'.
type APIInfo struct {
	Name    string   `json:"name"`
	Method  string   `json:"method"`
	BaseURL string   `json:"base_url"`
	Scopes  []string `json:"scopes,omitempty"`
	Flow    string   `json:"flow"`
}

func newAPIsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apis",
		Short: "List configured downstream APIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.loadConfig()
			if err != nil {
				return err
			}

			apis := cfg.Downstream.OptionsMap()
			infos := make([]APIInfo, 0, len(apis))
			for _, name := range slices.Sorted(maps.Keys(apis)) {
				o := apis[name]
				flow := "user"
				if o.RequestAppToken {
					flow = "app"
				}
				infos = append(infos, APIInfo{
					Name:    name,
					Method:  o.Method(),
					BaseURL: o.BaseURL,
					Scopes:  o.Scopes,
					Flow:    flow,
				})
			}

			out := cmd.OutOrStdout()
			if root.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string][]APIInfo{"apis": infos})
			}
			if len(infos) == 0 {
				fmt.Fprintln(out, "No downstream APIs configured.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tMETHOD\tFLOW\tBASE URL\tSCOPES")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", info.Name, info.Method, info.Flow, info.BaseURL, strings.Join(info.Scopes, " "))
			}
			return w.Flush()
		},
	}
}
