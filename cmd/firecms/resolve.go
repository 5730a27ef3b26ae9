package main

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	firecms "github.com/jinbe/firecms"
	"github.com/jinbe/firecms/navigation"
)

// resolution is what resolve prints.
type resolution struct {
	Key    string                     `json:"key" yaml:"key"`
	Config firecms.ResolvedConfig     `json:"config" yaml:"config"`
	View   *navigation.CollectionView `json:"view,omitempty" yaml:"view,omitempty"`
}

func (a *app) resolveCmd() *cobra.Command {
	var output string
	var view bool
	cmd := &cobra.Command{
		Use:   "resolve PATH [ENTITY_ID]",
		Short: "Print the configuration resolved for a collection path",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			path, entityID := args[0], ""
			if len(args) == 2 {
				entityID = args[1]
			}
			cfg, err := reg.Resolve(path, entityID)
			if err != nil {
				return err
			}
			res := resolution{Key: navigation.CompositeKey(path, entityID), Config: cfg}
			if view {
				if c, ok := reg.CollectionConfig(path); ok {
					v := navigation.BuildCollectionView(*c, path)
					res.View = &v
				}
			}
			return printValue(cmd.OutOrStdout(), output, res)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json, yaml or dump")
	cmd.Flags().BoolVar(&view, "view", false, "include the collection view of a declared collection")
	return cmd
}

func printValue(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "dump":
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
		cfg.Fdump(w, v)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
