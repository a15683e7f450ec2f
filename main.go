package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"itemcloud/cloud"
	"itemcloud/config"
	ierrors "itemcloud/errors"
	"itemcloud/geom"
	"itemcloud/item"
)

const (
	VERSION = "0.2.0"
)

// App 保存所有命令共享的状态
type App struct {
	Logger *log.Logger
}

// NewApp 创建写入 w 的 App
func NewApp(w io.Writer, level log.Level) *App {
	return &App{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// Options 是命令行参数，配置文件中的值会被显式给出的参数覆盖
type Options struct {
	ConfigPath    string
	OutputDir     string
	Verbose       bool
	Size          string
	MaxItemSize   string
	MinItemSize   string
	Config        config.Config
	NoRender      bool
	MaximizeAfter bool
}

// RootCommand 创建带有所有子命令的根命令
func (a *App) RootCommand() *cobra.Command {
	opts := &Options{Config: config.Default()}
	root := &cobra.Command{
		Use:          "itemcloud",
		Short:        "itemcloud packs weighted images and words into a cloud",
		Long:         `itemcloud places weighted items (images or text) on a canvas without overlap, shrinking and rotating them until they fit, and writes the cloud image, a reservation map and a reusable layout.`,
		Version:      VERSION,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Verbose {
				a.Logger.SetLevel(log.DebugLevel)
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&opts.OutputDir, "output", "o", "output", "output directory")
	root.PersistentFlags().BoolVar(&opts.NoRender, "no-render", false, "only write the layout, skip PNG rendering")

	root.AddCommand(a.generateCommand(opts))
	root.AddCommand(a.relayoutCommand(opts))
	return root
}

func (a *App) generateCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <items.csv|image-dir>",
		Short: "Generate a cloud from a weighted CSV or a directory of images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			return a.generate(cmd.Context(), args[0], cfg, opts)
		},
	}
	f := cmd.Flags()
	c := &opts.Config
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "TOML or YAML config file")
	f.StringVar(&c.Name, "name", c.Name, "base name of the output files")
	f.StringVar(&opts.Size, "size", "400,200", "canvas size as width,height")
	f.StringVar(&c.Mode, "mode", c.Mode, "colour mode (RGBA, RGB)")
	f.StringVar(&c.Background, "background", c.Background, "background colour #rrggbb[aa]")
	f.IntVar(&c.MaxItems, "max-items", c.MaxItems, "maximum number of items")
	f.StringVar(&opts.MaxItemSize, "max-item-size", "", "maximum item size as width,height (default: derived)")
	f.StringVar(&opts.MinItemSize, "min-item-size", "4,4", "minimum item size as width,height")
	f.IntVar(&c.StepSize, "step-size", c.StepSize, "pixels an item shrinks by per step")
	f.IntVar(&c.RotationIncrement, "rotation", c.RotationIncrement, "clockwise rotation increment in degrees, 0 disables rotation")
	f.StringVar(&c.ResizeType, "resize-type", c.ResizeType, "resize type (NO_RESIZE, MAINTAIN_ASPECT_RATIO, MAINTAIN_PERCENTAGE_CHANGE)")
	f.Float64Var(&c.Scale, "scale", c.Scale, "scale of the rendered cloud image")
	f.IntVar(&c.Margin, "margin", c.Margin, "free pixels around every item")
	f.IntVar(&c.Threads, "threads", c.Threads, "opening scan workers")
	f.StringVar(&c.SearchPattern, "search-pattern", c.SearchPattern, "search pattern (NONE, RANDOM, LINEAR, RAY, SPIRAL)")
	f.Uint64Var(&c.Seed, "seed", c.Seed, "seed of the RANDOM search pattern")
	f.IntVar(&c.ExpansionStep, "expansion-step", c.ExpansionStep, "grow the canvas by this many pixels while items are dropped")
	f.StringVar(&c.MaskPath, "mask", c.MaskPath, "image whose opaque non-white pixels form the canvas")
	f.BoolVar(&c.Maximize, "maximize", c.Maximize, "grow placed items into empty space")
	f.IntVar(&c.MaxSamples, "max-samples", c.MaxSamples, "maximum opening searches per item, 0 is unlimited")
	f.StringVar(&c.Filter, "filter", c.Filter, "resample filter")
	f.Float64Var(&c.FontSize, "font-size", c.FontSize, "initial font size of text items")
	f.StringVar(&c.TextColor, "text-color", c.TextColor, "text colour #rrggbb[aa]")
	f.Uint8Var(&c.AlphaThreshold, "alpha-threshold", c.AlphaThreshold, "alpha above which image pixels are solid")
	f.BoolVar(&c.SolidText, "solid-text", c.SolidText, "text items reserve their whole box")
	return cmd
}

// resolve 合并默认值、配置文件和显式给出的参数
func (o *Options) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = o.apply(f.Name, &cfg)
	})
	return cfg, err
}

// apply 把名为 name 的参数值写入 cfg
func (o *Options) apply(name string, cfg *config.Config) error {
	src := o.Config
	parseSize := func(s string, dst *geom.Size) error {
		size, err := geom.ParseSize(s)
		if err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
		*dst = size
		return nil
	}
	switch name {
	case "size":
		return parseSize(o.Size, &cfg.Size)
	case "max-item-size":
		return parseSize(o.MaxItemSize, &cfg.MaxItemSize)
	case "min-item-size":
		return parseSize(o.MinItemSize, &cfg.MinItemSize)
	case "name":
		cfg.Name = src.Name
	case "mode":
		cfg.Mode = src.Mode
	case "background":
		cfg.Background = src.Background
	case "max-items":
		cfg.MaxItems = src.MaxItems
	case "step-size":
		cfg.StepSize = src.StepSize
	case "rotation":
		cfg.RotationIncrement = src.RotationIncrement
	case "resize-type":
		cfg.ResizeType = src.ResizeType
	case "scale":
		cfg.Scale = src.Scale
	case "margin":
		cfg.Margin = src.Margin
	case "threads":
		cfg.Threads = src.Threads
	case "search-pattern":
		cfg.SearchPattern = src.SearchPattern
	case "seed":
		cfg.Seed = src.Seed
	case "expansion-step":
		cfg.ExpansionStep = src.ExpansionStep
	case "mask":
		cfg.MaskPath = src.MaskPath
	case "maximize":
		cfg.Maximize = src.Maximize
	case "max-samples":
		cfg.MaxSamples = src.MaxSamples
	case "filter":
		cfg.Filter = src.Filter
	case "font-size":
		cfg.FontSize = src.FontSize
	case "text-color":
		cfg.TextColor = src.TextColor
	case "alpha-threshold":
		cfg.AlphaThreshold = src.AlphaThreshold
	case "solid-text":
		cfg.SolidText = src.SolidText
	}
	return nil
}

// loadItems 从 CSV 文件或图片目录读取物品
func loadItems(input string, opts item.RenderOptions) ([]item.Weighted, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", input, err)
	}
	if info.IsDir() {
		return item.LoadDir(input, opts)
	}
	return item.LoadCSV(input, opts)
}

func (a *App) generate(ctx context.Context, input string, cfg config.Config, opts *Options) error {
	c, err := cloud.New(cfg, a.Logger)
	if err != nil {
		return err
	}
	items, err := loadItems(input, c.Config().RenderOptions())
	if err != nil {
		return err
	}
	a.Logger.Info("loaded items", "input", input, "items", len(items))

	result, err := c.Generate(ctx, items)
	if err != nil {
		return err
	}
	a.Logger.Info("generated cloud",
		"placed", result.Placed, "total", result.Total, "dropped", result.Dropped, "expansions", result.Expansions)
	return a.writeOutputs(result.Layout, opts)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := NewApp(os.Stderr, log.InfoLevel)
	if err := app.RootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		if code := ierrors.GetCode(err); code != "" {
			app.Logger.Error(ierrors.UserMessage(err), "code", code)
		} else {
			app.Logger.Error(err)
		}
		os.Exit(1)
	}
}

// outputPath 返回输出目录中的文件路径
func outputPath(opts *Options, name string) string {
	return filepath.Join(opts.OutputDir, name)
}
