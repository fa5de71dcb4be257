// Package worker submits named jobs to the external worker pool over
// net/rpc and decodes their results.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/syslog"
	pkgerrors "github.com/pkg/errors"
)

// Handle identifies a submitted job in logs and worker callbacks.
type Handle string

type Dispatcher interface {
	// SubmitAsync hands the job to the worker pool and returns without
	// waiting for the worker to acknowledge it.
	SubmitAsync(ctx context.Context, jobName string, payload any) (Handle, error)
	// SubmitSync runs the job and waits at most timeout for its result.
	SubmitSync(ctx context.Context, jobName string, payload any, timeout time.Duration) (JobResult, error)
}

// Endpoint is the single worker pool address jobs are sent to.
type Endpoint struct {
	Network     string
	Address     string
	DialTimeout time.Duration
	// AckTimeout bounds how long a background submission waits for the
	// worker's acceptance before the connection is dropped.
	AckTimeout time.Duration
}

// EndpointSource returns the current endpoint, so configuration reloads
// apply to the next submission.
type EndpointSource func() Endpoint

func StaticEndpoint(e Endpoint) EndpointSource {
	return func() Endpoint { return e }
}

type Client struct {
	endpoint EndpointSource
	metrics  *Metrics
}

func NewClient(endpoint EndpointSource, metrics *Metrics) *Client {
	return &Client{endpoint: endpoint, metrics: metrics}
}

var _ Dispatcher = (*Client)(nil)

func (c *Client) dial(ctx context.Context, ep Endpoint) (*rpc.Client, error) {
	dialer := net.Dialer{Timeout: ep.DialTimeout}
	conn, err := dialer.DialContext(ctx, ep.Network, ep.Address)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "dial worker pool at %s://%s", ep.Network, ep.Address)
	}
	return rpc.NewClient(conn), nil
}

func (c *Client) newArgs(jobName string, payload any) (*SubmitArgs, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "encode payload")
	}
	return &SubmitArgs{
		Handle:  uuid.NewString(),
		JobName: jobName,
		Payload: body,
	}, nil
}

func (c *Client) SubmitAsync(ctx context.Context, jobName string, payload any) (Handle, error) {
	args, err := c.newArgs(jobName, payload)
	if err != nil {
		return "", &errtypes.DispatchError{JobName: jobName, Err: err}
	}

	ep := c.endpoint()
	client, err := c.dial(ctx, ep)
	if err != nil {
		c.metrics.observe(jobName, "async", outcomeFailed)
		return "", &errtypes.DispatchError{JobName: jobName, Err: err}
	}

	reply := &SubmitReply{}
	// Go writes the request before returning; only the reply is awaited
	// in the background.
	call := client.Go(MethodSubmitBackground, args, reply, make(chan *rpc.Call, 1))

	select {
	case <-call.Done:
		_ = client.Close()
		if err := replyError(call.Error, reply); err != nil {
			c.metrics.observe(jobName, "async", outcomeRejected)
			return "", &errtypes.DispatchError{JobName: jobName, Err: err}
		}
	default:
		go awaitAck(client, call, args, ep.AckTimeout)
	}

	c.metrics.observe(jobName, "async", outcomeSubmitted)
	syslog.L.Info().WithMessage("job submitted").
		WithFields(map[string]any{"job": jobName, "handle": args.Handle}).Write()

	return Handle(args.Handle), nil
}

// awaitAck drains the worker's acceptance of a background job and closes
// the connection. A refusal at this point can only be logged.
func awaitAck(client *rpc.Client, call *rpc.Call, args *SubmitArgs, timeout time.Duration) {
	defer client.Close()

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-call.Done:
		if err := replyError(call.Error, call.Reply.(*SubmitReply)); err != nil {
			syslog.L.Error(err).WithMessage("worker refused background job").
				WithFields(map[string]any{"job": args.JobName, "handle": args.Handle}).Write()
		}
	case <-timer.C:
		syslog.L.Warn().WithMessage("no acknowledgement from worker pool").
			WithFields(map[string]any{"job": args.JobName, "handle": args.Handle}).Write()
	}
}

func (c *Client) SubmitSync(ctx context.Context, jobName string, payload any, timeout time.Duration) (JobResult, error) {
	if timeout <= 0 {
		return JobResult{}, pkgerrors.Errorf("SubmitSync %s: timeout must be positive", jobName)
	}

	args, err := c.newArgs(jobName, payload)
	if err != nil {
		return JobResult{}, &errtypes.DispatchError{JobName: jobName, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	client, err := c.dial(ctx, c.endpoint())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.metrics.observe(jobName, "sync", outcomeTimeout)
			return JobResult{}, &errtypes.TimeoutError{JobName: jobName, Err: ctx.Err()}
		}
		c.metrics.observe(jobName, "sync", outcomeFailed)
		return JobResult{}, &errtypes.DispatchError{JobName: jobName, Err: err}
	}
	defer client.Close()

	reply := &SubmitReply{}
	call := client.Go(MethodSubmit, args, reply, make(chan *rpc.Call, 1))

	select {
	case <-call.Done:
		c.metrics.observeDuration(jobName, time.Since(start).Seconds())
		if err := replyError(call.Error, reply); err != nil {
			c.metrics.observe(jobName, "sync", outcomeRejected)
			return JobResult{}, &errtypes.DispatchError{JobName: jobName, Err: err}
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.metrics.observe(jobName, "sync", outcomeTimeout)
			return JobResult{}, &errtypes.TimeoutError{JobName: jobName, Err: ctx.Err()}
		}
		return JobResult{}, pkgerrors.Wrapf(ctx.Err(), "SubmitSync %s", jobName)
	}

	result, err := ParseJobResult(reply.Result)
	if err != nil {
		return JobResult{}, pkgerrors.Wrapf(err, "SubmitSync %s", jobName)
	}

	c.metrics.observe(jobName, "sync", outcomeCompleted)
	return result, nil
}

func replyError(callErr error, reply *SubmitReply) error {
	if callErr != nil {
		var serverErr rpc.ServerError
		if errors.As(callErr, &serverErr) {
			return pkgerrors.Wrap(callErr, "worker pool rejected job")
		}
		return pkgerrors.Wrap(callErr, "worker pool call failed")
	}
	if reply.Status != StatusAccepted {
		return pkgerrors.Errorf("worker pool refused job: status %d: %s", reply.Status, reply.Message)
	}
	return nil
}
