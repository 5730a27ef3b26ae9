package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	firecms "github.com/jinbe/firecms"
	"github.com/jinbe/firecms/storage/firebasestore"
	"github.com/jinbe/firecms/storage/memstore"
	"github.com/jinbe/firecms/storage/miniostore"
	"github.com/jinbe/firecms/upload"
)

// uploadOutput is what upload prints.
type uploadOutput struct {
	Property string   `json:"property" yaml:"property"`
	Value    []string `json:"value" yaml:"value"`
	Failed   []string `json:"failed,omitempty" yaml:"failed,omitempty"`
}

func (a *app) uploadCmd() *cobra.Command {
	var entityID, output string
	var initial []string
	cmd := &cobra.Command{
		Use:   "upload PATH PROPERTY FILE...",
		Short: "Upload files into a storage property of a collection",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := a.registry()
			if err != nil {
				return err
			}
			path, key := args[0], args[1]
			cfg, err := reg.Resolve(path, entityID)
			if err != nil {
				return err
			}
			prop, ok := cfg.Schema.Properties[key]
			if !ok {
				return firecms.Errorf(firecms.CodeConfiguration, key, "property not found in schema %s", cfg.Schema.Name)
			}

			files := make([]upload.File, 0, len(args)-2)
			for _, p := range args[2:] {
				f, err := upload.OpenDiskFile(p)
				if err != nil {
					return err
				}
				files = append(files, f)
			}

			source, err := a.storage(ctx)
			if err != nil {
				return err
			}
			field, err := upload.NewField(prop, upload.Options{
				PropertyKey: key,
				EntityID:    entityID,
				Path:        path,
				Initial:     initial,
				Storage:     source,
				Logger:      a.log,
			})
			if err != nil {
				return err
			}
			defer field.Close()

			if err := field.Drop(ctx, files...); err != nil {
				return err
			}
			field.Wait()

			out := uploadOutput{Property: key, Value: field.Value().Locations}
			var errs []error
			for _, e := range field.Entries() {
				if e.State() == upload.StateFailed {
					out.Failed = append(out.Failed, e.File.Name())
					errs = append(errs, e.Err)
				}
			}
			if err := printValue(cmd.OutOrStdout(), output, out); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVarP(&entityID, "entity", "e", "", "entity id the files belong to")
	cmd.Flags().StringSliceVar(&initial, "initial", nil, "locations already stored in the property")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json, yaml or dump")
	return cmd
}

// storage connects the configured backend.
func (a *app) storage(ctx context.Context) (upload.StorageSource, error) {
	switch a.cfg.Storage {
	case "minio":
		return miniostore.Connect(ctx, a.cfg.Minio, a.log)
	case "firebase":
		return firebasestore.Connect(ctx, a.cfg.Firebase, a.log)
	case "memory":
		return memstore.New(memstore.WithLogger(a.log)), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage)
	}
}
