package promquery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tech-arch1tect/berth-monitor/config"
	"github.com/tech-arch1tect/berth-monitor/internal/logging"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	samples []Sample
	err     error
	queries []string
}

func (f *fakeQuerier) InstantQuery(_ context.Context, expr string) ([]Sample, error) {
	f.queries = append(f.queries, expr)
	return f.samples, f.err
}

func TestContainerCPU(t *testing.T) {
	q := &fakeQuerier{samples: []Sample{
		{Labels: map[string]string{"container": "web"}, Value: 0.5},
		{Labels: map[string]string{"name": "db"}, Value: 0.125},
		{Labels: map[string]string{"job": "cadvisor"}, Value: 0.0625},
	}}
	svc := NewService(q, config.DefaultCPUQuery, logging.NewNop())

	resp, err := svc.ContainerCPU(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{config.DefaultCPUQuery}, q.queries)
	assert.Equal(t, []ContainerCPU{
		{Container: "web", CPUPercent: 50},
		{Container: "db", CPUPercent: 12.5},
		{Container: "unknown", CPUPercent: 6.25},
	}, resp.Containers)
}

func TestContainerCPUCustomQuery(t *testing.T) {
	q := &fakeQuerier{}
	svc := NewService(q, config.DefaultCPUQuery, logging.NewNop())

	_, err := svc.ContainerCPU(context.Background(), "rate(container_cpu_usage_seconds_total[5m])")
	require.NoError(t, err)
	assert.Equal(t, []string{"rate(container_cpu_usage_seconds_total[5m])"}, q.queries)
}

func TestContainerCPUEmptyResult(t *testing.T) {
	svc := NewService(&fakeQuerier{}, config.DefaultCPUQuery, logging.NewNop())

	resp, err := svc.ContainerCPU(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, resp.Containers)
	assert.Empty(t, resp.Containers)
}

func TestContainerCPUNotConfigured(t *testing.T) {
	svc := NewService(nil, config.DefaultCPUQuery, logging.NewNop())

	_, err := svc.ContainerCPU(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = svc.ContainerCPURates(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewCPURateSource(t *testing.T) {
	assert.Nil(t, NewCPURateSource(NewService(nil, config.DefaultCPUQuery, logging.NewNop())))

	configured := NewService(&fakeQuerier{}, config.DefaultCPUQuery, logging.NewNop())
	assert.NotNil(t, NewCPURateSource(configured))
}

func TestContainerCPURates(t *testing.T) {
	q := &fakeQuerier{samples: []Sample{
		{Labels: map[string]string{"container": "web", "cpu": "cpu00"}, Value: 0.25},
		{Labels: map[string]string{"container": "web", "cpu": "cpu01"}, Value: 0.25},
		{Labels: map[string]string{}, Value: 0.9},
	}}
	svc := NewService(q, config.DefaultCPUQuery, logging.NewNop())

	rates, err := svc.ContainerCPURates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"web": 50}, rates)
}

func newRequest(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandlerGetAdvanced(t *testing.T) {
	q := &fakeQuerier{samples: []Sample{{Labels: map[string]string{"container": "web"}, Value: 0.5}}}
	h := NewHandler(NewService(q, config.DefaultCPUQuery, logging.NewNop()))

	c, rec := newRequest("/api/metrics/advanced?query=up")
	require.NoError(t, h.GetAdvanced(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"containers": [{"container": "web", "cpuPercent": 50}]}`, rec.Body.String())
	assert.Equal(t, []string{"up"}, q.queries)
}

func TestHandlerGetAdvancedEmpty(t *testing.T) {
	h := NewHandler(NewService(&fakeQuerier{}, config.DefaultCPUQuery, logging.NewNop()))

	c, rec := newRequest("/api/metrics/advanced")
	require.NoError(t, h.GetAdvanced(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"containers": []}`, rec.Body.String())
}

func TestHandlerGetAdvancedQueryFailure(t *testing.T) {
	q := &fakeQuerier{err: errors.New("connection refused")}
	h := NewHandler(NewService(q, config.DefaultCPUQuery, logging.NewNop()))

	c, rec := newRequest("/api/metrics/advanced")
	require.NoError(t, h.GetAdvanced(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "connection refused"}`, rec.Body.String())
}

func TestHandlerGetAdvancedNotConfigured(t *testing.T) {
	h := NewHandler(NewService(nil, config.DefaultCPUQuery, logging.NewNop()))

	c, rec := newRequest("/api/metrics/advanced")
	require.NoError(t, h.GetAdvanced(c))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
