package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/rpc"
	"sync"
	"testing"
	"time"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePool is an in-process worker pool.
type fakePool struct {
	mu       sync.Mutex
	received []SubmitArgs
	result   string
	status   int
	delay    time.Duration
	fail     string
}

func (p *fakePool) record(args *SubmitArgs) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = append(p.received, *args)
}

func (p *fakePool) Submit(args *SubmitArgs, reply *SubmitReply) error {
	p.record(args)
	time.Sleep(p.delay)
	if p.fail != "" {
		return errors.New(p.fail)
	}
	reply.Handle = args.Handle
	reply.Status = p.status
	reply.Result = json.RawMessage(p.result)
	return nil
}

func (p *fakePool) SubmitBackground(args *SubmitArgs, reply *SubmitReply) error {
	p.record(args)
	time.Sleep(p.delay)
	reply.Handle = args.Handle
	reply.Status = p.status
	return nil
}

func (p *fakePool) jobs() []SubmitArgs {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SubmitArgs(nil), p.received...)
}

func startPool(t *testing.T, pool *fakePool) Endpoint {
	t.Helper()

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName(ServiceName, pool))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	go server.Accept(l)

	return Endpoint{
		Network:     "tcp",
		Address:     l.Addr().String(),
		DialTimeout: time.Second,
		AckTimeout:  5 * time.Second,
	}
}

func unreachableEndpoint(t *testing.T) Endpoint {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return Endpoint{Network: "tcp", Address: addr, DialTimeout: time.Second}
}

type testPayload struct {
	TransferID int64  `json:"transferID"`
	Name       string `json:"name"`
}

func TestSubmitSyncReturnsResult(t *testing.T) {
	pool := &fakePool{
		status: StatusAccepted,
		result: `{"parts":[{"testName":"Source Directory","result":"Pass"},{"testName":"Final Verdict","result":"Pass"}]}`,
	}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	client := NewClient(StaticEndpoint(startPool(t, pool)), metrics)

	result, err := client.SubmitSync(context.Background(), JobTestCollectionSystemTransfer,
		testPayload{TransferID: 3, Name: "SCS"}, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, result.Parts, 2)
	assert.Equal(t, "Source Directory", result.Parts[0].Name)
	assert.Equal(t, PartPass, result.Parts[1].Result)

	jobs := pool.jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, JobTestCollectionSystemTransfer, jobs[0].JobName)
	assert.JSONEq(t, `{"transferID":3,"name":"SCS"}`, string(jobs[0].Payload))
	assert.NotEmpty(t, jobs[0].Handle)

	families, err := reg.Gather()
	require.NoError(t, err)
	var counted bool
	for _, family := range families {
		if family.GetName() != "openvdm_worker_dispatches_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["outcome"] == outcomeCompleted && labels["job"] == JobTestCollectionSystemTransfer {
				counted = m.GetCounter().GetValue() == 1
			}
		}
	}
	assert.True(t, counted, "completed sync dispatch is counted")
}

func TestSubmitSyncTimeout(t *testing.T) {
	pool := &fakePool{status: StatusAccepted, delay: 2 * time.Second}
	client := NewClient(StaticEndpoint(startPool(t, pool)), nil)

	start := time.Now()
	_, err := client.SubmitSync(context.Background(), JobTestCruiseDataTransfer, testPayload{}, 100*time.Millisecond)

	var timeout errtypes.IsTimeout
	assert.ErrorAs(t, err, &timeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSubmitSyncRequiresTimeout(t *testing.T) {
	client := NewClient(StaticEndpoint(unreachableEndpoint(t)), nil)

	_, err := client.SubmitSync(context.Background(), JobTestCruiseDataTransfer, testPayload{}, 0)
	require.Error(t, err)

	var dispatch errtypes.IsDispatch
	assert.False(t, errors.As(err, &dispatch), "a missing timeout is a caller error, not a dispatch error")
}

func TestSubmitSyncWorkerRejects(t *testing.T) {
	tests := []struct {
		name string
		pool *fakePool
	}{
		{"server error", &fakePool{status: StatusAccepted, fail: "unknown job"}},
		{"refused status", &fakePool{status: 503}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(StaticEndpoint(startPool(t, tt.pool)), nil)

			_, err := client.SubmitSync(context.Background(), "noSuchJob", testPayload{}, 5*time.Second)
			var dispatch *errtypes.DispatchError
			require.ErrorAs(t, err, &dispatch)
			assert.Equal(t, "noSuchJob", dispatch.JobName)
		})
	}
}

func TestUnreachableWorkerPool(t *testing.T) {
	client := NewClient(StaticEndpoint(unreachableEndpoint(t)), nil)

	_, err := client.SubmitAsync(context.Background(), JobRunCollectionSystemTransfer, testPayload{})
	var dispatch errtypes.IsDispatch
	assert.ErrorAs(t, err, &dispatch)

	_, err = client.SubmitSync(context.Background(), JobTestCollectionSystemTransfer, testPayload{}, time.Second)
	assert.ErrorAs(t, err, &dispatch)
}

func TestSubmitAsyncDoesNotWaitForWorker(t *testing.T) {
	pool := &fakePool{status: StatusAccepted, delay: 2 * time.Second}
	client := NewClient(StaticEndpoint(startPool(t, pool)), nil)

	start := time.Now()
	handle, err := client.SubmitAsync(context.Background(), JobRunCollectionSystemTransfer, testPayload{TransferID: 9})
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
	assert.Less(t, time.Since(start), time.Second)

	assert.Eventually(t, func() bool {
		jobs := pool.jobs()
		return len(jobs) == 1 && jobs[0].Handle == string(handle)
	}, time.Second, 10*time.Millisecond)
}

func TestStaticEndpointIsReadPerSubmission(t *testing.T) {
	pool := &fakePool{status: StatusAccepted, result: `{"parts":[]}`}
	good := startPool(t, pool)
	bad := unreachableEndpoint(t)

	current := bad
	client := NewClient(func() Endpoint { return current }, nil)

	_, err := client.SubmitSync(context.Background(), JobExportOVDMConfig, testPayload{}, time.Second)
	require.Error(t, err)

	current = good
	_, err = client.SubmitSync(context.Background(), JobExportOVDMConfig, testPayload{}, time.Second)
	require.NoError(t, err)
}
