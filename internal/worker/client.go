package worker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Options configures the job-processing service client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *infra.Logger
}

// Client talks HTTP to the remote worker that performs transforms and mixing.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = "http://localhost:5000"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{baseURL: base, httpClient: httpClient, logger: logger}
}

// BaseURL returns the worker endpoint root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SubmitJob starts a mix on the worker. The worker replaces whatever job it was
// running before.
func (c *Client) SubmitJob(ctx context.Context, req domain.JobRequest) error {
	body, err := json.Marshal(NewMixPayload(req))
	if err != nil {
		return fmt.Errorf("worker: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/start_mix", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("worker: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return transportError("start mix", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("worker: start mix status %d: %w", resp.StatusCode, domain.ErrRejected)
	}
	var ack StartMixResponse
	if err := json.Unmarshal(raw, &ack); err == nil {
		c.logger.Debug().Int("task_id", ack.TaskID).Msg("worker: mix accepted")
	}
	return nil
}

// PollStatus reports the state of the worker's single outstanding job.
func (c *Client) PollStatus(ctx context.Context) (domain.JobStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/progress", nil)
	if err != nil {
		return domain.JobStatus{}, fmt.Errorf("worker: build request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.JobStatus{}, transportError("progress", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.JobStatus{}, transportError("progress", fmt.Errorf("status %d", resp.StatusCode))
	}
	var payload ProgressPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.JobStatus{}, transportError("decode progress", err)
	}
	return statusFromPayload(payload), nil
}

func statusFromPayload(p ProgressPayload) domain.JobStatus {
	switch p.Status {
	case StatusCompleted:
		if p.Result == "" {
			// The worker flips the status before the result lands; keep waiting.
			return domain.JobStatus{State: domain.JobPending, Progress: p.Progress}
		}
		data, err := base64.StdEncoding.DecodeString(p.Result)
		if err != nil {
			return domain.JobStatus{State: domain.JobFailed, Progress: p.Progress, Message: "worker returned an undecodable result"}
		}
		return domain.JobStatus{
			State:    domain.JobCompleted,
			Progress: 100,
			Result:   domain.Image{Data: data, MIME: "image/png"},
		}
	case StatusError:
		return domain.JobStatus{State: domain.JobFailed, Progress: p.Progress, Message: p.Error}
	default:
		return domain.JobStatus{State: domain.JobPending, Progress: p.Progress}
	}
}

// UploadSource sends the raw bytes of a source image for slot.
func (c *Client) UploadSource(ctx context.Context, slot domain.SlotID, filename string, data []byte) error {
	if !slot.Valid() {
		return fmt.Errorf("worker: %w: %d", domain.ErrInvalidSlot, slot)
	}
	if strings.TrimSpace(filename) == "" {
		filename = fmt.Sprintf("slot-%d.png", slot)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return fmt.Errorf("worker: build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("worker: build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("worker: build upload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/upload/%d", c.baseURL, slot)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("worker: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return transportError("upload", err)
	}
	defer resp.Body.Close()

	var out UploadResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out)
	if resp.StatusCode >= 300 {
		if out.Error != "" {
			return fmt.Errorf("worker: upload slot %d: %s: %w", slot, out.Error, domain.ErrRejected)
		}
		return fmt.Errorf("worker: upload slot %d status %d: %w", slot, resp.StatusCode, domain.ErrRejected)
	}
	c.logger.Debug().Int("slot", int(slot)).Ints("dims", out.Dims).Msg("worker: source uploaded")
	return nil
}

// FetchChannelView returns the rendered spectrum component of slot as a PNG.
func (c *Client) FetchChannelView(ctx context.Context, slot domain.SlotID, channel domain.Channel) (domain.Image, error) {
	if !slot.Valid() {
		return domain.Image{}, fmt.Errorf("worker: %w: %d", domain.ErrInvalidSlot, slot)
	}
	endpoint := fmt.Sprintf("%s/get_view/%d/%s", c.baseURL, slot, channel.Component())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Image{}, fmt.Errorf("worker: build request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.Image{}, transportError("view", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusAccepted:
		return domain.Image{}, fmt.Errorf("worker: slot %d %s: %w", slot, channel, domain.ErrViewPending)
	case resp.StatusCode == http.StatusNotFound:
		return domain.Image{}, fmt.Errorf("worker: slot %d: %w", slot, domain.ErrNotFound)
	case resp.StatusCode >= 300:
		return domain.Image{}, fmt.Errorf("worker: view status %d: %w", resp.StatusCode, domain.ErrRejected)
	}

	var payload ViewPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Image{}, transportError("decode view", err)
	}
	if payload.Image == "" {
		return domain.Image{}, fmt.Errorf("worker: slot %d %s: %w", slot, channel, domain.ErrViewPending)
	}
	data, err := base64.StdEncoding.DecodeString(payload.Image)
	if err != nil {
		return domain.Image{}, fmt.Errorf("worker: decode view image: %w", err)
	}
	return domain.Image{Data: data, MIME: "image/png"}, nil
}

func transportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("worker: %s: %w: %v", op, domain.ErrTransport, err)
}

var _ domain.JobService = (*Client)(nil)
