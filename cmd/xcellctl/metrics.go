package main

import (
	"context"
	"sort"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/omeyang/xcell/pkg/observability/xmetrics"
)

// meter 是进程内的 OTel 指标管道，压测结束后一次性读取。
type meter struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	observer *xmetrics.OTelObserver
}

func newMeter() (*meter, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	obs, err := xmetrics.NewOTelObserver(
		xmetrics.WithMeterProvider(provider),
		xmetrics.WithInstrumentationName("xcellctl"),
	)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	return &meter{reader: reader, provider: provider, observer: obs}, nil
}

// metricValue 是单个指标的汇总：计数器为总和，直方图为样本数。
type metricValue struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// snapshot 读取当前所有指标，按名称排序。
func (m *meter) snapshot(ctx context.Context) ([]metricValue, error) {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	var out []metricValue
	for _, sm := range rm.ScopeMetrics {
		for _, mt := range sm.Metrics {
			var v int64
			switch data := mt.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					v += dp.Value
				}
			case metricdata.Histogram[int64]:
				for _, dp := range data.DataPoints {
					v += int64(dp.Count) //nolint:gosec // 样本数不会溢出
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					v += int64(dp.Count) //nolint:gosec // 样本数不会溢出
				}
			default:
				continue
			}
			out = append(out, metricValue{Name: mt.Name, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *meter) shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
