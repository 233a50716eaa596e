// Package model holds the typed wire representations of Deployment Manager
// resources and the client-side validation applied before any request leaves
// the process.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/KeesGeerligs/nosana-deployments-go/lib/solana"
	"github.com/KeesGeerligs/nosana-deployments-go/lib/util"
)

// Status is the lifecycle state of a deployment. Transitions are driven by
// the Deployment Manager; the SDK only requests them and reflects the
// server's answer.
type Status string

// Deployment statuses.
const (
	StatusDraft             Status = "DRAFT"
	StatusError             Status = "ERROR"
	StatusStarting          Status = "STARTING"
	StatusRunning           Status = "RUNNING"
	StatusStopping          Status = "STOPPING"
	StatusStopped           Status = "STOPPED"
	StatusInsufficientFunds Status = "INSUFFICIENT_FUNDS"
	StatusArchived          Status = "ARCHIVED"
)

// Strategy selects how the Deployment Manager schedules jobs for a
// deployment.
type Strategy string

// Deployment strategies.
const (
	StrategySimple       Strategy = "SIMPLE"
	StrategySimpleExtend Strategy = "SIMPLE-EXTEND"
	StrategyScheduled    Strategy = "SCHEDULED"
	StrategyInfinite     Strategy = "INFINITE"
)

var strategies = []string{
	string(StrategySimple),
	string(StrategySimpleExtend),
	string(StrategyScheduled),
	string(StrategyInfinite),
}

// Task types returned by the tasks endpoint.
const (
	TaskList   = "LIST"
	TaskExtend = "EXTEND"
	TaskStop   = "STOP"
)

// ValidationError is a client-side rejection of a request payload. It is
// raised before the network layer is ever reached.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// Job is one job spawned for a deployment.
type Job struct {
	Job        string    `json:"job"`
	Deployment string    `json:"deployment"`
	Tx         string    `json:"tx"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Event is a log entry attached to a deployment by the server.
type Event struct {
	Category     string    `json:"category"`
	DeploymentID string    `json:"deploymentId"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	Tx           string    `json:"tx,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Task is a scheduled action tied to a deployment, read-only for the SDK.
type Task struct {
	Task         string    `json:"task"`
	DeploymentID string    `json:"deploymentId"`
	Tx           string    `json:"tx,omitempty"`
	DueAt        time.Time `json:"dueAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Deployment is the full record returned by the Deployment Manager.
type Deployment struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Vault              string    `json:"vault"`
	Market             string    `json:"market"`
	Owner              string    `json:"owner"`
	Status             Status    `json:"status"`
	IPFSDefinitionHash string    `json:"ipfsDefinitionHash"`
	Replicas           int       `json:"replicas"`
	Timeout            int       `json:"timeout"`
	Strategy           Strategy  `json:"strategy"`
	Schedule           string    `json:"schedule,omitempty"`
	Jobs               []Job     `json:"jobs,omitempty"`
	Events             []Event   `json:"events,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// CreateRequest is the payload for creating a deployment. Validate must pass
// before it is sent.
type CreateRequest struct {
	Name               string   `json:"name"`
	Market             string   `json:"market"`
	Owner              string   `json:"owner,omitempty"`
	IPFSDefinitionHash string   `json:"ipfsDefinitionHash"`
	Replicas           int      `json:"replicas"`
	Timeout            int      `json:"timeout"`
	Strategy           Strategy `json:"strategy"`
	Schedule           string   `json:"schedule,omitempty"`
}

// Validate enforces the create constraints client-side: non-empty name,
// well-formed addresses, replicas >= 1, timeout >= 60s, a known strategy,
// and a 6-field cron schedule present exactly when the strategy is
// SCHEDULED.
func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Msg: "must not be empty"}
	}

	if _, err := solana.ParsePublicKey(r.Market); err != nil {
		return &ValidationError{Field: "market", Msg: "must be a base58 32-byte address"}
	}

	if r.Owner != "" {
		if _, err := solana.ParsePublicKey(r.Owner); err != nil {
			return &ValidationError{Field: "owner", Msg: "must be a base58 32-byte address"}
		}
	}

	if strings.TrimSpace(r.IPFSDefinitionHash) == "" {
		return &ValidationError{Field: "ipfsDefinitionHash", Msg: "must not be empty"}
	}

	if r.Replicas < 1 {
		return &ValidationError{Field: "replicas", Msg: "must be at least 1"}
	}

	if r.Timeout < 60 {
		return &ValidationError{Field: "timeout", Msg: "must be at least 60 seconds"}
	}

	if !util.In(strategies, string(r.Strategy)) {
		return &ValidationError{Field: "strategy", Msg: fmt.Sprintf("unknown strategy %q", r.Strategy)}
	}

	return validateSchedule(r.Strategy, r.Schedule)
}

func validateSchedule(strategy Strategy, schedule string) error {
	if strategy == StrategyScheduled {
		if strings.TrimSpace(schedule) == "" {
			return &ValidationError{Field: "schedule", Msg: "required when strategy is SCHEDULED"}
		}

		if len(strings.Fields(schedule)) != 6 {
			return &ValidationError{Field: "schedule", Msg: "must be a 6-field cron expression"}
		}

		return nil
	}

	if schedule != "" {
		return &ValidationError{Field: "schedule", Msg: "only allowed when strategy is SCHEDULED"}
	}

	return nil
}

// UpdateReplicasRequest is the payload of update-replica-count.
type UpdateReplicasRequest struct {
	Replicas int `json:"replicas"`
}

// Validate requires at least one replica.
func (r UpdateReplicasRequest) Validate() error {
	if r.Replicas < 1 {
		return &ValidationError{Field: "replicas", Msg: "must be at least 1"}
	}

	return nil
}

// UpdateTimeoutRequest is the payload of update-timeout.
type UpdateTimeoutRequest struct {
	Timeout int `json:"timeout"`
}

// Validate requires a timeout of at least one minute.
func (r UpdateTimeoutRequest) Validate() error {
	if r.Timeout < 60 {
		return &ValidationError{Field: "timeout", Msg: "must be at least 60 seconds"}
	}

	return nil
}

// StatusResponse is returned by the start, stop and archive operations.
type StatusResponse struct {
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReplicasResponse is returned by update-replica-count.
type ReplicasResponse struct {
	Replicas  int       `json:"replicas"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TimeoutResponse is returned by update-timeout.
type TimeoutResponse struct {
	Timeout   int       `json:"timeout"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VaultBalance is the manager's view of a vault, in decimal units on the
// wire. The SDK converts to smallest units at the boundary.
type VaultBalance struct {
	SOL float64 `json:"SOL"`
	NOS float64 `json:"NOS"`
}

// WithdrawRequest asks the manager to build a withdrawal transaction. A nil
// amount means "all of it".
type WithdrawRequest struct {
	SOL *float64 `json:"SOL"`
	NOS *float64 `json:"NOS"`
}

// WithdrawResponse carries the manager-built transaction, base64 encoded.
type WithdrawResponse struct {
	Transaction string `json:"transaction"`
}
