package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"

	"github.com/digestwatch/digestwatch/internal/utils"
	"github.com/digestwatch/digestwatch/pkg/model"
)

// label keys checked in order when grouping containers
var serviceLabels = []string{
	"com.docker.compose.service",
	"com.docker.swarm.service.name",
	"service",
}
var projectLabels = []string{
	"com.docker.compose.project",
	"com.docker.swarm.stack.name",
	"project",
}

// ListSnapshots queries the daemon for containers and extracts one
// canonical snapshot per container. A single container's extraction
// failure is logged and skipped, never fatal to the batch.
func (ds *DockerScanner) ListSnapshots(ctx context.Context, includeStopped bool) ([]model.ContainerSnapshot, error) {

	list, err := ds.api.ContainerList(ctx, container.ListOptions{All: includeStopped})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRuntimeUnavailable, err)
	}

	snapshots := []model.ContainerSnapshot{}
	for _, item := range list {
		snapshot, err := ds.extractSnapshot(ctx, item.ID)
		if err != nil {
			ds.logger.Warn().Err(err).Str("container", shortId(item.ID)).Msg("skip container, extraction failed")
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	ds.logger.Info().Int("containers", len(snapshots)).Msg("scan complete")
	return snapshots, nil
}

// IsRuntimeAvailable is a lightweight liveness probe; false on any failure.
func (ds *DockerScanner) IsRuntimeAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ds.docker.PingTimeout)
	defer cancel()

	_, err := ds.api.Ping(ctx)
	return err == nil
}

// IsContainerRunning returns false (not an error) when the container
// no longer exists or its state cannot be read.
func (ds *DockerScanner) IsContainerRunning(ctx context.Context, name string) bool {
	info, err := ds.api.ContainerInspect(ctx, name)
	if err != nil || info.State == nil {
		return false
	}
	return info.State.Running
}

func (ds *DockerScanner) extractSnapshot(ctx context.Context, containerId string) (model.ContainerSnapshot, error) {

	info, err := ds.api.ContainerInspect(ctx, containerId)
	if err != nil {
		return model.ContainerSnapshot{}, fmt.Errorf("inspect: %w", err)
	}

	name := strings.TrimPrefix(info.Name, "/")
	if name == "" {
		name = shortId(containerId)
	}

	var imageRef string
	var labels map[string]string
	if info.Config != nil {
		imageRef = info.Config.Image
		labels = info.Config.Labels
	}
	imageName, imageTag := model.ParseImageRef(imageRef)

	digest := ds.imageDigest(ctx, info.Image)
	if digest == "" {
		return model.ContainerSnapshot{}, fmt.Errorf("no digest for container %s", name)
	}

	snapshot := model.ContainerSnapshot{
		ContainerId:   containerId,
		ContainerName: name,
		ServiceName:   firstLabel(labels, serviceLabels),
		ImageName:     imageName,
		ImageTag:      imageTag,
		Digest:        digest,
		ProjectName:   firstLabel(labels, projectLabels),
		Created:       parseDockerTime(info.Created),
	}
	return snapshot, snapshot.Validate()
}

// imageDigest resolves the content digest for a local image id, in
// priority order: repo digest pin, sha256 image id, short-id fallback.
// Empty result means the container must be excluded from the scan.
func (ds *DockerScanner) imageDigest(ctx context.Context, imageId string) string {

	if info, err := ds.api.ImageInspect(ctx, imageId); err == nil {
		for _, repoDigest := range info.RepoDigests {
			if strings.Contains(repoDigest, "@sha256:") {
				return utils.RightOfFirstOr(repoDigest, "@", "")
			}
		}
		if strings.HasPrefix(info.ID, "sha256:") {
			return info.ID
		}
	}
	if imageId == "" {
		return ""
	}
	// degraded, non-verifiable digest
	return "short:" + shortId(imageId)
}

func firstLabel(labels map[string]string, keys []string) *string {
	for _, key := range keys {
		if value, ok := labels[key]; ok && value != "" {
			return &value
		}
	}
	return nil
}

func parseDockerTime(input string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, input); err == nil {
		return ts.UTC()
	}
	return time.Now().UTC()
}

func shortId(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
