package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	firecms "github.com/jinbe/firecms"
	"github.com/jinbe/firecms/collections"
	"github.com/jinbe/firecms/navigation"
	"github.com/jinbe/firecms/registry"
)

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload the collections file on change and log the collection tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := registry.New(registry.WithLogger(a.log))
			return collections.Watch(cmd.Context(), a.cfg.Collections, func(b *collections.Bundle, err error) {
				if err != nil {
					a.log.Error("collections rejected, keeping previous tree", zap.Error(err))
					return
				}
				b.Apply(reg)
				logTree(a.log, "", reg.Collections())
			}, collections.WithWatchLogger(a.log))
		},
	}
}

func logTree(log *zap.Logger, parent string, cols []firecms.EntityCollection) {
	for _, c := range cols {
		p := navigation.Join(parent, c.RelativePath)
		log.Info("collection",
			zap.String("path", p),
			zap.String("name", c.Name),
			zap.String("url", navigation.CollectionURL(p)),
			zap.Int("subcollections", len(c.Subcollections)))
		logTree(log, navigation.Join(p, "{id}"), c.Subcollections)
	}
}
