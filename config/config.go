package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"klinechart/internal/chart"
	"klinechart/internal/indicator"
)

// Config holds all application configuration. Process settings come from
// environment variables (optionally seeded from a .env file); the chart
// description comes from a YAML file.
type Config struct {
	// Infrastructure
	SQLitePath  string
	MetricsAddr string
	LogLevel    string

	// Quote selection
	Symbol string
	// Bars are resampled to this timeframe before charting; 0 keeps them.
	Timeframe time.Duration

	// Optional spec string overriding the indicators of the chart file,
	// e.g. "EMA:9,EMA:21,MACD:12:26:9".
	IndicatorConfigs string

	ChartPath string
	Chart     ChartFile
}

// ChartFile is the YAML chart description.
type ChartFile struct {
	Layout  LayoutConfig  `yaml:"layout"`
	Candles CandlesConfig `yaml:"candles"`
	Groups  []GroupConfig `yaml:"groups"`
}

// LayoutConfig leaves Spacing and ShadowWidth nil when the keys are absent,
// so an explicit 0 survives defaulting.
type LayoutConfig struct {
	BarWidth    float64  `yaml:"bar_width"`
	Spacing     *float64 `yaml:"spacing"`
	ShadowWidth *float64 `yaml:"shadow_width"`
	Scale       float64  `yaml:"scale"`
}

type CandlesConfig struct {
	UpColor   string  `yaml:"up_color"`
	DownColor string  `yaml:"down_color"`
	MinHeight float64 `yaml:"min_height"`
}

// GroupConfig describes one vertical band. Height is a fraction (<= 1) or
// pixels.
type GroupConfig struct {
	Name        string       `yaml:"name"`
	Height      float64      `yaml:"height"`
	Candles     bool         `yaml:"candles"`
	Lines       []LineConfig `yaml:"lines"`
	MACD        *MACDConfig  `yaml:"macd"`
	LatestPrice bool         `yaml:"latest_price"`
}

type LineConfig struct {
	Type   string  `yaml:"type"`
	Period int     `yaml:"period"`
	Color  string  `yaml:"color"`
	Width  float64 `yaml:"width"`
}

type MACDConfig struct {
	Short        int                  `yaml:"short"`
	Long         int                  `yaml:"long"`
	Signal       int                  `yaml:"signal"`
	DiffColor    string               `yaml:"diff_color"`
	DEAColor     string               `yaml:"dea_color"`
	UpColor      string               `yaml:"up_color"`
	DownColor    string               `yaml:"down_color"`
	MinBarHeight float64              `yaml:"min_bar_height"`
	ShowDIF      *bool                `yaml:"show_dif"`
	ShowDEA      *bool                `yaml:"show_dea"`
	Histogram    chart.HistogramStyle `yaml:"histogram"`
}

// Load reads the .env file at envPath when present, then the environment,
// then the chart file (CHART_CONFIG, default chart.yaml; a missing file
// means the built-in chart). Environment variables override the file.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	cfg := &Config{
		SQLitePath:       getEnv("SQLITE_PATH", "data/quotes.db"),
		MetricsAddr:      getEnv("METRICS_ADDR", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Symbol:           getEnv("SYMBOL", "NIFTY"),
		IndicatorConfigs: getEnv("INDICATOR_CONFIGS", ""),
		ChartPath:        getEnv("CHART_CONFIG", "chart.yaml"),
	}

	data, err := os.ReadFile(cfg.ChartPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read chart config: %w", err)
	}
	chartFile, err := ParseChart(data)
	if err != nil {
		return nil, err
	}
	cfg.Chart = chartFile

	if cfg.IndicatorConfigs != "" {
		specs, err := indicator.ParseSpecs(cfg.IndicatorConfigs)
		if err != nil {
			return nil, fmt.Errorf("INDICATOR_CONFIGS: %w", err)
		}
		cfg.Chart.ApplySpecs(specs)
	}
	if v := os.Getenv("TIMEFRAME"); v != "" {
		tf, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TIMEFRAME %q: %w", v, err)
		}
		cfg.Timeframe = tf
	}
	if v := os.Getenv("LAYOUT_SCALE"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("LAYOUT_SCALE %q: %w", v, err)
		}
		cfg.Chart.Layout.Scale = scale
	}

	return cfg, nil
}

// ParseChart decodes a YAML chart description and fills in defaults. Empty
// input yields the default chart.
func ParseChart(data []byte) (ChartFile, error) {
	var cf ChartFile
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return ChartFile{}, fmt.Errorf("parse chart config: %w", err)
		}
	}
	cf.applyDefaults()
	return cf, nil
}

func (cf *ChartFile) applyDefaults() {
	def := chart.DefaultLayout()
	if cf.Layout.BarWidth == 0 {
		cf.Layout.BarWidth = def.BarWidth
	}
	if cf.Layout.Spacing == nil {
		cf.Layout.Spacing = &def.Spacing
	}
	if cf.Layout.ShadowWidth == nil {
		cf.Layout.ShadowWidth = &def.ShadowWidth
	}
	if cf.Layout.Scale == 0 {
		cf.Layout.Scale = def.Scale
	}
	if len(cf.Groups) == 0 {
		cf.Groups = []GroupConfig{
			{Name: "main", Height: 0.7, Candles: true, Lines: []LineConfig{{Type: "EMA", Period: 20}}, LatestPrice: true},
			{Name: "macd", Height: 0.3, MACD: &MACDConfig{}},
		}
	}
	for i := range cf.Groups {
		if m := cf.Groups[i].MACD; m != nil && m.Short == 0 && m.Long == 0 && m.Signal == 0 {
			m.Short, m.Long, m.Signal = 12, 26, 9
		}
	}
}

// ApplySpecs replaces every indicator of the chart with specs: EMA and SMA
// become lines on the candle group, MACD specs get one group each.
func (cf *ChartFile) ApplySpecs(specs []indicator.Spec) {
	groups := make([]GroupConfig, 0, len(cf.Groups))
	mainIdx := -1
	for _, g := range cf.Groups {
		if !g.Candles {
			continue
		}
		g.Lines, g.MACD = nil, nil
		if mainIdx < 0 {
			mainIdx = len(groups)
		}
		groups = append(groups, g)
	}
	if mainIdx < 0 {
		groups = append(groups, GroupConfig{Name: "main", Candles: true})
		mainIdx = 0
	}
	for _, s := range specs {
		p := s.Periods
		switch strings.ToUpper(s.Type) {
		case "EMA", "SMA":
			groups[mainIdx].Lines = append(groups[mainIdx].Lines, LineConfig{Type: strings.ToUpper(s.Type), Period: p[0]})
		case "MACD":
			m := &MACDConfig{Short: 12, Long: 26, Signal: 9}
			if len(p) == 3 {
				m.Short, m.Long, m.Signal = p[0], p[1], p[2]
			}
			groups = append(groups, GroupConfig{Name: strings.ToLower(s.Key()), MACD: m})
		}
	}
	cf.Groups = groups
}

// Validate returns the first configuration error.
func (c *Config) Validate() error {
	if c.SQLitePath == "" {
		return errors.New("SQLITE_PATH is required")
	}
	if c.Symbol == "" {
		return errors.New("SYMBOL is required")
	}
	if c.Timeframe < 0 {
		return fmt.Errorf("TIMEFRAME %v is negative", c.Timeframe)
	}
	if _, err := c.Chart.Build(); err != nil {
		return err
	}
	return nil
}

// ChartLayout converts the layout section.
func (cf ChartFile) ChartLayout() chart.Layout {
	return chart.Layout{
		BarWidth:    cf.Layout.BarWidth,
		Spacing:     deref(cf.Layout.Spacing),
		ShadowWidth: deref(cf.Layout.ShadowWidth),
		Scale:       cf.Layout.Scale,
	}
}

// Build validates the chart description and constructs its groups.
func (cf ChartFile) Build() ([]chart.Group, error) {
	if err := cf.ChartLayout().Validate(); err != nil {
		return nil, err
	}
	groups := make([]chart.Group, 0, len(cf.Groups))
	for i, gc := range cf.Groups {
		g, err := cf.buildGroup(gc)
		if err != nil {
			return nil, fmt.Errorf("groups[%d] (%s): %w", i, gc.Name, err)
		}
		groups = append(groups, g)
	}
	return chart.Groups(groups...), nil
}

func (cf ChartFile) buildGroup(gc GroupConfig) (chart.Group, error) {
	if gc.Height < 0 {
		return chart.Group{}, fmt.Errorf("negative height %v", gc.Height)
	}
	g := chart.Group{Name: gc.Name, Height: gc.Height}

	if gc.Candles {
		style := chart.DefaultCandlestickStyle()
		if err := overrideColor(&style.UpColor, cf.Candles.UpColor); err != nil {
			return g, err
		}
		if err := overrideColor(&style.DownColor, cf.Candles.DownColor); err != nil {
			return g, err
		}
		if cf.Candles.MinHeight > 0 {
			style.MinHeight = cf.Candles.MinHeight
		}
		g.Renderers = append(g.Renderers, chart.NewCandlestick(style))
	}

	for _, lc := range gc.Lines {
		style := chart.LineStyle{Color: chart.MustColor("#f5a623"), Width: lc.Width}
		if err := overrideColor(&style.Color, lc.Color); err != nil {
			return g, err
		}
		line, err := chart.NewLine(indicator.Spec{Type: lc.Type, Periods: []int{lc.Period}}, style)
		if err != nil {
			return g, err
		}
		g.Renderers = append(g.Renderers, line)
	}

	if mc := gc.MACD; mc != nil {
		style := chart.DefaultMACDStyle()
		for _, o := range []struct {
			dst *chart.Color
			src string
		}{
			{&style.DiffColor, mc.DiffColor},
			{&style.DEAColor, mc.DEAColor},
			{&style.UpColor, mc.UpColor},
			{&style.DownColor, mc.DownColor},
		} {
			if err := overrideColor(o.dst, o.src); err != nil {
				return g, err
			}
		}
		if mc.MinBarHeight > 0 {
			style.MinBarHeight = mc.MinBarHeight
		}
		if mc.ShowDIF != nil {
			style.ShowDIF = *mc.ShowDIF
		}
		if mc.ShowDEA != nil {
			style.ShowDEA = *mc.ShowDEA
		}
		style.Histogram = mc.Histogram
		m, err := chart.NewMACD(mc.Short, mc.Long, mc.Signal, style)
		if err != nil {
			return g, err
		}
		g.Renderers = append(g.Renderers, m)
	}

	if len(g.Renderers) == 0 {
		return g, errors.New("group draws nothing")
	}
	if gc.LatestPrice {
		g.Renderers = append(g.Renderers, chart.NewLatestPrice(chart.DefaultLatestPriceStyle()))
	}
	return g, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func overrideColor(dst *chart.Color, s string) error {
	if s == "" {
		return nil
	}
	c, err := chart.ParseColor(s)
	if err != nil {
		return err
	}
	*dst = c
	return nil
}

// Specs lists every indicator the chart draws, in group order.
func (cf ChartFile) Specs() []indicator.Spec {
	var specs []indicator.Spec
	for _, g := range cf.Groups {
		for _, l := range g.Lines {
			specs = append(specs, indicator.Spec{Type: strings.ToUpper(l.Type), Periods: []int{l.Period}})
		}
		if m := g.MACD; m != nil {
			specs = append(specs, indicator.Spec{Type: "MACD", Periods: []int{m.Short, m.Long, m.Signal}})
		}
	}
	return specs
}

// LogValue implements slog.LogValuer.
func (c *Config) LogValue() slog.Value {
	specs := c.Chart.Specs()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.String()
	}
	return slog.GroupValue(
		slog.String("sqlite_path", c.SQLitePath),
		slog.String("metrics_addr", c.MetricsAddr),
		slog.String("symbol", c.Symbol),
		slog.Duration("timeframe", c.Timeframe),
		slog.String("chart", c.ChartPath),
		slog.Int("groups", len(c.Chart.Groups)),
		slog.String("indicators", strings.Join(names, ",")),
	)
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
