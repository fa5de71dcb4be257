package worker

import "encoding/json"

// ServiceName is the net/rpc service the worker pool registers.
const ServiceName = "WorkerPool"

const (
	// MethodSubmit runs a job and replies with its result.
	MethodSubmit = ServiceName + ".Submit"
	// MethodSubmitBackground queues a job and replies once it is accepted.
	MethodSubmitBackground = ServiceName + ".SubmitBackground"
)

// StatusAccepted is the reply status of a job the worker pool took.
const StatusAccepted = 200

type SubmitArgs struct {
	Handle  string
	JobName string
	Payload json.RawMessage
}

type SubmitReply struct {
	Handle  string
	Status  int
	Message string
	// Result is the JobResult document of a synchronous job.
	Result json.RawMessage
}
