package runtime

import (
	"context"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"

	"github.com/digestwatch/digestwatch/pkg/model"
)

// engineAPI is the slice of the Docker Engine client the scanner uses.
type engineAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ImageInspect(ctx context.Context, imageID string, opts ...client.ImageInspectOption) (image.InspectResponse, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ImageRemove(ctx context.Context, imageID string, options image.RemoveOptions) ([]image.DeleteResponse, error)
}

// DockerScanner extracts canonical container snapshots from a Docker
// daemon and resolves remote registry digests for tracked images.
type DockerScanner struct {
	api      engineAPI
	docker   model.Docker
	registry model.Registry
	logger   *zerolog.Logger
}

// create new scanner connected per environment / config
func NewDockerScanner(docker model.Docker, registry model.Registry, logger *zerolog.Logger) (*DockerScanner, error) {

	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if docker.Host != "" {
		opts = append(opts, client.WithHost(docker.Host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}
	return newScanner(cli, docker, registry, logger), nil
}

func newScanner(api engineAPI, docker model.Docker, registry model.Registry, logger *zerolog.Logger) *DockerScanner {
	if docker.PingTimeout <= 0 {
		docker.PingTimeout = 2 * time.Second
	}
	if registry.Timeout <= 0 {
		registry.Timeout = 30 * time.Second
	}
	return &DockerScanner{
		api:      api,
		docker:   docker,
		registry: registry,
		logger:   logger,
	}
}
