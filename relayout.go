package main

import (
	"context"

	"github.com/spf13/cobra"

	"itemcloud/cloud"
	"itemcloud/layout"
)

func (a *App) relayoutCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relayout <name.layout.json>",
		Short: "Verify a saved layout, optionally maximize its items, and render it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.relayout(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.MaximizeAfter, "maximize", false, "grow every item into the surrounding empty space")
	return cmd
}

// relayout 读取布局并校验预留网格；需要时扩展物品后以 .maximized 名称保存
func (a *App) relayout(ctx context.Context, path string, opts *Options) error {
	l, err := layout.Load(path)
	if err != nil {
		return err
	}
	renderOpts := l.Settings.RenderOptions()
	if err := l.Verify(renderOpts); err != nil {
		return err
	}
	a.Logger.Info("verified layout", "name", l.Name, "items", len(l.Items), "canvas", l.Canvas.Size)

	if opts.MaximizeAfter {
		settings := l.Settings
		settings.ExpansionStep = 0
		settings.MaskPath = ""
		c, err := cloud.New(settings, a.Logger)
		if err != nil {
			return err
		}
		if l, err = c.MaximizeEmptySpace(ctx, l); err != nil {
			return err
		}
	}
	return a.writeOutputs(l, opts)
}
