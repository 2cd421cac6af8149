package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"karaokebox/task"

	"go.uber.org/zap"
	"resty.dev/v3"
)

// ErrTaskNotFound is returned when the server does not know the task id.
var ErrTaskNotFound = errors.New("task not found")

const defaultPollInterval = 2 * time.Second

// TaskStatus is the server's view of one job.
type TaskStatus struct {
	Status  task.Status `json:"status"`
	Message string      `json:"message"`
}

type uploadResponse struct {
	TaskID string `json:"task_id"`
}

type tracksResponse struct {
	Tracks []string `json:"tracks"`
}

// Client drives a remote karaokebox server: upload, poll, list, fetch.
type Client struct {
	http         *resty.Client
	baseURL      string
	log          *zap.Logger
	pollInterval time.Duration
}

func New(baseURL string, pollInterval time.Duration, log *zap.Logger) *Client {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		http:         resty.New().SetBaseURL(baseURL).SetTimeout(30 * time.Second),
		baseURL:      baseURL,
		log:          log,
		pollInterval: pollInterval,
	}
}

func (c *Client) Close() error {
	return c.http.Close()
}

// Upload sends a local video file and returns the created task id.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	var out uploadResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetFile("file", path).
		SetResult(&out).
		Post("/upload")
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	if !res.IsSuccess() {
		return "", fmt.Errorf("upload %s: server returned %s", path, res.Status())
	}
	if out.TaskID == "" {
		return "", fmt.Errorf("upload %s: server returned no task id", path)
	}
	return out.TaskID, nil
}

// Status fetches the current status for a task id.
func (c *Client) Status(ctx context.Context, taskID string) (TaskStatus, error) {
	var out TaskStatus
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/status/" + taskID)
	if err != nil {
		return TaskStatus{}, fmt.Errorf("status %s: %w", taskID, err)
	}
	if res.StatusCode() == 404 {
		return TaskStatus{}, ErrTaskNotFound
	}
	if !res.IsSuccess() {
		return TaskStatus{}, fmt.Errorf("status %s: server returned %s", taskID, res.Status())
	}
	return out, nil
}

// Tracks lists processed songs. Any transport failure degrades to an empty
// list so a listing refresh can never take the UI down with it.
func (c *Client) Tracks(ctx context.Context) []string {
	var out tracksResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/tracks")
	if err != nil || !res.IsSuccess() {
		c.log.Warn("track listing unavailable", zap.Error(err))
		return []string{}
	}
	if out.Tracks == nil {
		return []string{}
	}
	return out.Tracks
}

// PollStatus polls the task at the configured cadence until it reaches a
// terminal state or ctx is cancelled. onPoll, if non-nil, runs after every
// poll so a UI can update its progress indicator; it is invoked on the
// polling goroutine, so UI implementations must hand the value back to
// their own context.
func (c *Client) PollStatus(ctx context.Context, taskID string, onPoll func(TaskStatus)) (TaskStatus, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		st, err := c.Status(ctx, taskID)
		if err != nil {
			return TaskStatus{}, err
		}
		if onPoll != nil {
			onPoll(st)
		}
		if st.Status.Terminal() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return TaskStatus{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// AudioURL is the fetch URL for one stem of a song.
func (c *Client) AudioURL(song, trackType string) string {
	return fmt.Sprintf("%s/audio/%s/%s", c.baseURL, song, trackType)
}

// VideoURL is the fetch URL for the muted video of a song.
func (c *Client) VideoURL(song string) string {
	return fmt.Sprintf("%s/video/%s", c.baseURL, song)
}
