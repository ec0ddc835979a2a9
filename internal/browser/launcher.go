package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/gridharness/internal/devtools"
)

const (
	devToolsPort     = "3000/tcp"
	containerDLDir   = "/downloads"
	readinessRetries = 20
)

// Instance is a running browser.
type Instance struct {
	ContainerID string
	// DevToolsURL is the browser's own DevTools endpoint, reachable from the node only.
	DevToolsURL string
	Version     string
}

// LaunchOptions describe one browser to start.
type LaunchOptions struct {
	SessionID    string
	DownloadsDir string
	// TimeZone is an IANA zone name; empty keeps the image default.
	TimeZone string
}

// Launcher starts and stops browsers for a grid node.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (*Instance, error)
	Stop(ctx context.Context, containerID string) error
}

// dockerAPI is the part of the docker client the launcher uses.
type dockerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	Close() error
}

// DockerLauncher runs each browser in its own container with the session's
// downloads directory bind-mounted.
type DockerLauncher struct {
	client dockerAPI
	image  string
	logger *zap.Logger
	// readyHost is where published ports are reachable from the node.
	readyHost string
}

func NewDockerLauncher(imageRef string, logger *zap.Logger) (*DockerLauncher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &DockerLauncher{
		client:    cli,
		image:     imageRef,
		logger:    logger,
		readyHost: "localhost",
	}, nil
}

// Launch starts a browser container. A container that fails after creation
// is force-removed before the error is returned.
func (l *DockerLauncher) Launch(ctx context.Context, opts LaunchOptions) (_ *Instance, err error) {
	env := []string{
		"CONNECTION_TIMEOUT=-1",
		"MAX_CONCURRENT_SESSIONS=1",
		"PREBOOT_CHROME=true",
		"DOWNLOAD_DIR=" + containerDLDir,
	}
	if opts.TimeZone != "" {
		env = append(env, "TZ="+opts.TimeZone)
	}

	containerConfig := &container.Config{
		Image: l.image,
		Labels: map[string]string{
			"session-id": opts.SessionID,
			"managed-by": "gridharness",
		},
		Env: env,
		ExposedPorts: nat.PortSet{
			devToolsPort: struct{}{},
		},
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			devToolsPort: []nat.PortBinding{
				{
					HostIP:   "0.0.0.0",
					HostPort: "0",
				},
			},
		},
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: opts.DownloadsDir,
				Target: containerDLDir,
			},
		},
	}

	resp, err := l.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, containerName(opts.SessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		rmErr := l.client.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})
		if rmErr != nil {
			l.logger.Error("failed to remove container after launch failure",
				zap.String("container", resp.ID), zap.Error(rmErr))
		}
	}()

	if err := l.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	inspect, err := l.client.ContainerInspect(ctx, resp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}

	var bindings []nat.PortBinding
	if inspect.NetworkSettings != nil {
		bindings = inspect.NetworkSettings.Ports[devToolsPort]
	}
	if len(bindings) == 0 {
		return nil, fmt.Errorf("container %s exposes no DevTools port", resp.ID)
	}
	port := bindings[0].HostPort

	version, err := waitForBrowserReady(ctx, l.readyHost, port)
	if err != nil {
		return nil, fmt.Errorf("browser failed to become ready: %w", err)
	}

	// The browser advertises its in-container address.
	devToolsURL, err := devtools.RewriteHost(version.WebSocketDebuggerURL, &url.URL{Host: l.readyHost + ":" + port})
	if err != nil {
		return nil, err
	}

	l.logger.Info("browser started",
		zap.String("session", opts.SessionID),
		zap.String("container", resp.ID),
		zap.String("port", port))

	return &Instance{
		ContainerID: resp.ID,
		DevToolsURL: devToolsURL,
		Version:     version.Browser,
	}, nil
}

func (l *DockerLauncher) Stop(ctx context.Context, containerID string) error {
	timeout := 10
	if err := l.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}

	if err := l.client.ContainerRemove(ctx, containerID, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}

	return nil
}

// EnsureImage pulls the browser image unless it is already present.
func (l *DockerLauncher) EnsureImage(ctx context.Context) error {
	images, err := l.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == l.image {
				return nil
			}
		}
	}

	reader, err := l.client.ImagePull(ctx, l.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

func (l *DockerLauncher) Close() error {
	return l.client.Close()
}

func containerName(sessionID string) string {
	if len(sessionID) > 8 {
		sessionID = sessionID[:8]
	}
	return "session-" + sessionID
}

// waitForBrowserReady polls /json/version until the browser answers.
func waitForBrowserReady(ctx context.Context, host, port string) (*VersionInfo, error) {
	endpoint := fmt.Sprintf("http://%s:%s/json/version", host, port)

	for i := 0; i < readinessRetries; i++ {
		info, err := FetchVersion(ctx, http.DefaultClient, endpoint)
		if err == nil {
			return info, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	return nil, fmt.Errorf("browser did not become ready after %d retries", readinessRetries)
}
