package runtime

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/docker/docker/api/types/image"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/digestwatch/digestwatch/internal/utils"
)

// split "linux/amd64" or "linux/arm/v6" to OS, architecture, variant
func splitPlatformStr(input string) (string, string, string) {
	parts := strings.Split(strings.TrimSpace(input)+"/", "/")
	if len(parts) > 2 {
		return parts[0], parts[1], parts[2]
	}
	return "", "", ""
}

// ResolveRemoteDigest returns the registry's current digest for
// image:tag, trying in order: registry manifest lookup (no pull),
// local engine inspect, and - when enabled - a probe pull that is
// removed again on every exit path. An empty digest with nil error is
// the normal "unresolved" outcome; callers must handle it gracefully.
func (ds *DockerScanner) ResolveRemoteDigest(ctx context.Context, imageName, tag string) (string, error) {

	fullImage := imageName + ":" + tag
	ctx, cancel := context.WithTimeout(ctx, ds.registry.Timeout)
	defer cancel()

	// method 1: registry metadata lookup
	digest, err := ds.registryDigest(ctx, fullImage)
	if err == nil && digest != "" {
		return digest, nil
	}
	if err != nil {
		ds.logger.Debug().Err(err).Str("image", fullImage).Msg("registry lookup failed")
	}
	if ctx.Err() != nil {
		return "", nil // deadline hit counts as unresolved
	}

	// method 2: engine-side image inspection
	digest, err = ds.localDigest(ctx, fullImage)
	if err == nil && digest != "" {
		return digest, nil
	}
	if err != nil {
		ds.logger.Debug().Err(err).Str("image", fullImage).Msg("local inspect failed")
	}
	if ctx.Err() != nil {
		return "", nil
	}

	// method 3: probe pull, configurable, cleaned up on all paths
	if ds.registry.AllowPull {
		digest, err = ds.pullDigest(ctx, fullImage)
		if err == nil && digest != "" {
			return digest, nil
		}
		if err != nil {
			ds.logger.Debug().Err(err).Str("image", fullImage).Msg("probe pull failed")
		}
	}

	ds.logger.Warn().Str("image", fullImage).Msg("could not resolve remote digest")
	return "", nil
}

// registryDigest fetches the manifest descriptor digest without pulling
// anything, with platform and TLS options per config.
func (ds *DockerScanner) registryDigest(ctx context.Context, imageRef string) (string, error) {

	ref, err := name.ParseReference(imageRef)
	if err != nil {
		return "", err
	}

	options := []remote.Option{remote.WithContext(ctx)}

	// add platform option if given
	if ds.registry.Platform != "" {
		os, arch, variant := splitPlatformStr(ds.registry.Platform)
		if os == "" || arch == "" {
			return "", fmt.Errorf("invalid platform '%s'", ds.registry.Platform)
		}
		options = append(options, remote.WithPlatform(v1.Platform{
			OS:           os,
			Architecture: arch,
			Variant:      variant,
		}))
	}

	// skip tls certificate verify if set to off (default is on)
	if ds.registry.InsecureTls {
		options = append(options, remote.WithTransport(&http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}))
	}

	desc, err := remote.Get(ref, options...)
	if err != nil {
		return "", err
	}
	return desc.Digest.String(), nil
}

// localDigest asks the engine for an already-present image with that
// reference, preferring its repo digest pin over the raw image id.
func (ds *DockerScanner) localDigest(ctx context.Context, imageRef string) (string, error) {

	info, err := ds.api.ImageInspect(ctx, imageRef)
	if err != nil {
		return "", err
	}
	for _, repoDigest := range info.RepoDigests {
		if strings.Contains(repoDigest, "@sha256:") {
			return utils.RightOfFirstOr(repoDigest, "@", ""), nil
		}
	}
	if strings.HasPrefix(info.ID, "sha256:") {
		return info.ID, nil
	}
	return "", nil
}

// pullDigest pulls just enough to learn the digest, then removes the
// pulled reference again. Reaching this method implies the reference
// was not present locally, so the untag cannot strip a tag some other
// process created before the probe.
func (ds *DockerScanner) pullDigest(ctx context.Context, imageRef string) (string, error) {

	reader, err := ds.api.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return "", err
	}
	_, _ = io.Copy(io.Discard, reader)
	_ = reader.Close()

	defer func() {
		// remove by reference, not id, so concurrent holders of the
		// same layers keep their references intact
		if _, err := ds.api.ImageRemove(context.WithoutCancel(ctx), imageRef, image.RemoveOptions{}); err != nil {
			ds.logger.Debug().Err(err).Str("image", imageRef).Msg("probe image cleanup failed")
		}
	}()

	info, err := ds.api.ImageInspect(ctx, imageRef)
	if err != nil {
		return "", err
	}
	for _, repoDigest := range info.RepoDigests {
		if strings.Contains(repoDigest, "@sha256:") {
			return utils.RightOfFirstOr(repoDigest, "@", ""), nil
		}
	}
	if strings.HasPrefix(info.ID, "sha256:") {
		return info.ID, nil
	}
	return "", nil
}
