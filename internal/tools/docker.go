package tools

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

// DockerRunner executes commands in a disposable container with the
// sandbox bind-mounted at /sandbox. Stronger isolation than a host
// subprocess: the command sees nothing but the sandbox and the image.
type DockerRunner struct {
	Image       string
	CPULimit    float64
	MemoryLimit int64
}

// Run satisfies CommandRunner. The container allocates a TTY so output
// arrives unframed; stdout and stderr are merged, which the transcript
// tolerates (both streams are data for the decision step either way).
func (r DockerRunner) Run(ctx context.Context, cmd, cwd string, timeout time.Duration) (string, string, int, bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return "", "", -1, false, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: cwd, Target: "/sandbox"},
		},
		NetworkMode: "none",
	}
	if r.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(r.CPULimit * 1e9)
	}
	if r.MemoryLimit > 0 {
		hostCfg.Memory = r.MemoryLimit
	}

	containerCfg := &container.Config{
		Image:      r.Image,
		Cmd:        []string{"sh", "-c", cmd},
		WorkingDir: "/sandbox",
		Tty:        true,
		Labels:     map[string]string{"sqlbench": "true"},
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return "", "", -1, false, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return "", "", -1, false, fmt.Errorf("starting container: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	waitResult := cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
				out := r.collectLogs(cli, containerID)
				if ctx.Err() != nil {
					return out, "", -1, false, ctx.Err()
				}
				return out, "", 124, true, nil
			}
		case status := <-waitResult.Result:
			out := r.collectLogs(cli, containerID)
			return out, "", int(status.StatusCode), false, nil
		}
	}
}

func (r DockerRunner) collectLogs(cli *client.Client, containerID string) string {
	logReader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return ""
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return string(data)
}
