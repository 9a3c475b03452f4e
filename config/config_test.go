package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"klinechart/internal/chart"
	"klinechart/internal/indicator"
)

const chartYAML = `
layout:
  bar_width: 8
  spacing: 2
  shadow_width: 2
  scale: 2
candles:
  up_color: "#00ff00"
groups:
  - name: price
    height: 0.6
    candles: true
    latest_price: true
    lines:
      - {type: ema, period: 9, color: "#ff0000"}
      - {type: SMA, period: 50}
  - name: momentum
    height: 0.4
    macd:
      short: 5
      long: 35
      signal: 5
      show_dea: false
      histogram:
        long_increasing_hollow: true
        legacy_classification: true
`

func TestParseChart(t *testing.T) {
	cf, err := ParseChart([]byte(chartYAML))
	require.NoError(t, err)

	require.Equal(t, chart.Layout{BarWidth: 8, Spacing: 2, ShadowWidth: 2, Scale: 2}, cf.ChartLayout())
	require.Len(t, cf.Groups, 2)
	require.Equal(t, 5, cf.Groups[1].MACD.Short)
	require.False(t, *cf.Groups[1].MACD.ShowDEA)
	require.Nil(t, cf.Groups[1].MACD.ShowDIF)
	require.True(t, cf.Groups[1].MACD.Histogram.LongIncreasingHollow)
	require.True(t, cf.Groups[1].MACD.Histogram.LegacyClassification)

	var keys []string
	for _, s := range cf.Specs() {
		keys = append(keys, s.Key())
	}
	require.Equal(t, []string{"EMA_9", "SMA_50", "MACD_5_35_5"}, keys)

	groups, err := cf.Build()
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Len(t, groups[0].Renderers, 4)
	require.Equal(t, "EMA_9", groups[0].Renderers[1].Name())
	require.Equal(t, "latest_price", groups[0].Renderers[3].Name())
	require.Equal(t, "MACD_5_35_5", groups[1].Renderers[0].Name())
}

func TestParseChart_Defaults(t *testing.T) {
	cf, err := ParseChart(nil)
	require.NoError(t, err)
	require.Equal(t, chart.DefaultLayout(), cf.ChartLayout())

	var keys []string
	for _, s := range cf.Specs() {
		keys = append(keys, s.Key())
	}
	require.Equal(t, []string{"EMA_20", "MACD_12_26_9"}, keys)

	groups, err := cf.Build()
	require.NoError(t, err)
	_, err = chart.New(cf.ChartLayout(), groups)
	require.NoError(t, err)
}

func TestParseChart_ExplicitZeroLayout(t *testing.T) {
	cf, err := ParseChart([]byte("layout: {bar_width: 4, spacing: 0, shadow_width: 0}"))
	require.NoError(t, err)
	l := cf.ChartLayout()
	require.Equal(t, chart.Layout{BarWidth: 4, Spacing: 0, ShadowWidth: 0, Scale: 1}, l)
	require.NoError(t, l.Validate())

	cf, err = ParseChart([]byte("layout: {bar_width: 4}"))
	require.NoError(t, err)
	require.Equal(t, 2.0, cf.ChartLayout().Spacing)
	require.Equal(t, 1.0, cf.ChartLayout().ShadowWidth)
}

func TestParseChart_Malformed(t *testing.T) {
	_, err := ParseChart([]byte("groups: [\n"))
	require.Error(t, err)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{"zero period", "groups: [{name: a, lines: [{type: EMA, period: 0}]}]", indicator.ErrInvalidPeriod},
		{"unknown type", "groups: [{name: a, lines: [{type: WMA, period: 3}]}]", indicator.ErrUnknownType},
		{"bad macd", "groups: [{name: a, macd: {short: -1, long: 26, signal: 9}}]", indicator.ErrInvalidPeriod},
		{"negative spacing", "layout: {spacing: -3}", chart.ErrInvalidLayout},
		{"bad color", `groups: [{name: a, candles: true, lines: [{type: EMA, period: 3, color: "#xyz1"}]}]`, nil},
		{"empty group", "groups: [{name: a}]", nil},
		{"latest price alone", "groups: [{name: a, latest_price: true}]", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf, err := ParseChart([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = cf.Build()
			require.Error(t, err)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}
}

func TestApplySpecs(t *testing.T) {
	cf, err := ParseChart([]byte(chartYAML))
	require.NoError(t, err)
	specs, err := indicator.ParseSpecs("EMA:5,MACD:3:6:3,SMA:10")
	require.NoError(t, err)
	cf.ApplySpecs(specs)

	require.Len(t, cf.Groups, 2)
	require.Equal(t, "price", cf.Groups[0].Name)
	require.Equal(t, []LineConfig{{Type: "EMA", Period: 5}, {Type: "SMA", Period: 10}}, cf.Groups[0].Lines)
	require.Equal(t, "macd_3_6_3", cf.Groups[1].Name)

	_, err = cf.Build()
	require.NoError(t, err)
}

func TestLoad_EnvAndFiles(t *testing.T) {
	dir := t.TempDir()
	chartPath := filepath.Join(dir, "chart.yaml")
	require.NoError(t, os.WriteFile(chartPath, []byte(chartYAML), 0o644))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SYMBOL=BANKNIFTY\nLOG_LEVEL=debug\n"), 0o644))

	t.Setenv("CHART_CONFIG", chartPath)
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "q.db"))
	t.Setenv("INDICATOR_CONFIGS", "EMA:9,EMA:21")
	t.Setenv("LAYOUT_SCALE", "3")
	t.Setenv("TIMEFRAME", "5m")
	// godotenv never overrides variables already set; make sure these are
	// read from the file.
	t.Setenv("SYMBOL", "")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("SYMBOL")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load(envPath)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "BANKNIFTY", cfg.Symbol)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 3.0, cfg.Chart.Layout.Scale)
	require.Equal(t, 5*time.Minute, cfg.Timeframe)
	require.Len(t, cfg.Chart.Groups, 1)
	require.Len(t, cfg.Chart.Groups[0].Lines, 2)
}

func TestLoad_MissingFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHART_CONFIG", filepath.Join(dir, "absent.yaml"))
	t.Setenv("INDICATOR_CONFIGS", "")

	cfg, err := Load(filepath.Join(dir, "absent.env"))
	require.NoError(t, err)
	require.Len(t, cfg.Chart.Groups, 2)
}

func TestLoad_BadTimeframe(t *testing.T) {
	t.Setenv("CHART_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("INDICATOR_CONFIGS", "")
	t.Setenv("TIMEFRAME", "five")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_BadIndicatorConfigs(t *testing.T) {
	t.Setenv("CHART_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("INDICATOR_CONFIGS", "EMA:0")
	_, err := Load("")
	require.True(t, errors.Is(err, indicator.ErrInvalidPeriod))
}
