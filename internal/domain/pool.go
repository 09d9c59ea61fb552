package domain

// Admission is the dispatcher's answer to a submission.
type Admission string

const (
	// AdmissionAccepted means an idle worker picked the job up immediately.
	AdmissionAccepted Admission = "accepted"
	// AdmissionDeferred means the pool was saturated and the job was parked
	// until a worker reports completion.
	AdmissionDeferred Admission = "deferred"
)

// PoolMode is the dispatcher's admission mode.
type PoolMode string

const (
	ModeAccepting PoolMode = "accepting"
	ModeSaturated PoolMode = "saturated"
)

// PoolSnapshot is a point-in-time view of the worker partition, exposed to
// the API and CLI. Idle + Busy always equals Size.
type PoolSnapshot struct {
	Size    int      `json:"size"`
	Idle    int      `json:"idle"`
	Busy    int      `json:"busy"`
	Pending int      `json:"pending"`
	Mode    PoolMode `json:"mode"`

	Submitted uint64 `json:"submitted"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
}
