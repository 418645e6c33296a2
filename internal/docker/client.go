package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tech-arch1tect/berth-monitor/config"
	"github.com/tech-arch1tect/berth-monitor/internal/logging"
	"github.com/tech-arch1tect/berth-monitor/internal/stats"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"go.uber.org/zap"
)

// apiClient is the slice of the docker SDK this package uses.
type apiClient interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerStats(ctx context.Context, containerID string, stream bool) (container.StatsResponseReader, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	Ping(ctx context.Context) (types.Ping, error)
	Close() error
}

type Client struct {
	cli    apiClient
	logger *logging.Logger
}

func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.RuntimeEndpoint != "" {
		opts = append(opts, client.WithHost(cfg.RuntimeEndpoint))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return newClient(cli, logger), nil
}

func newClient(cli apiClient, logger *logging.Logger) *Client {
	return &Client{
		cli:    cli,
		logger: logger.Component("docker"),
	}
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// WaitReady pings the daemon with exponential backoff until it answers or
// maxWait elapses.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		ping, err := c.cli.Ping(pingCtx)
		if err != nil {
			c.logger.Debug("Docker daemon not reachable yet",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}

		c.logger.Info("Connected to Docker daemon",
			zap.String("api_version", ping.APIVersion),
			zap.String("os_type", ping.OSType),
		)
		return nil
	}, backoff.WithContext(b, ctx))
}

func (c *Client) ListContainers(ctx context.Context, all bool) ([]stats.ContainerDescriptor, error) {
	containers, err := c.cli.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	result := make([]stats.ContainerDescriptor, 0, len(containers))
	for _, ctr := range containers {
		result = append(result, toDescriptor(ctr))
	}

	return result, nil
}

func toDescriptor(ctr container.Summary) stats.ContainerDescriptor {
	name := ""
	if len(ctr.Names) > 0 {
		name = stats.NormalizeName(ctr.Names[0])
	}
	rawState := string(ctr.State)

	return stats.ContainerDescriptor{
		ID:       ctr.ID,
		Name:     name,
		RawState: rawState,
		State:    stats.ClassifyState(rawState, ctr.Status),
		Status:   ctr.Status,
	}
}

// ContainerStats takes one non-streaming sample. The daemon fills in the
// previous CPU reading itself, so the snapshot carries both halves of the
// delta.
func (c *Client) ContainerStats(ctx context.Context, containerID string) (*stats.ResourceSnapshot, error) {
	resp, err := c.cli.ContainerStats(ctx, containerID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for container %s: %w", containerID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var v container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats.ErrStatsUnavailable
		}
		return nil, fmt.Errorf("failed to decode stats for container %s: %w", containerID, err)
	}

	return toSnapshot(&v)
}

func (c *Client) MemoryLimit(ctx context.Context, containerID string) (uint64, error) {
	inspect, err := c.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect container %s: %w", containerID, err)
	}

	if inspect.ContainerJSONBase == nil || inspect.HostConfig == nil || inspect.HostConfig.Memory <= 0 {
		return 0, nil
	}
	return uint64(inspect.HostConfig.Memory), nil
}
