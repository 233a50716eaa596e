package deployments

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/KeesGeerligs/nosana-deployments-go/lib/model"
)

// Handle is a deployment record bound to the client that fetched it, so
// follow-up operations can be invoked directly on the result. The binding
// is an explicit typed reference, not runtime field injection.
type Handle struct {
	model.Deployment

	c *Client
}

func (c *Client) handle(d model.Deployment) *Handle {
	return &Handle{Deployment: d, c: c}
}

// Create validates the request client-side and registers a new deployment.
// A validation failure never reaches the network.
func (c *Client) Create(ctx context.Context, req model.CreateRequest) (*Handle, error) {
	if req.Replicas == 0 {
		req.Replicas = 1
	}

	if req.Timeout == 0 {
		req.Timeout = 3600
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var d model.Deployment
	if err := c.api.Request(ctx, http.MethodPost, "/deployment/create", req, &d); err != nil {
		return nil, err
	}

	c.log.Info("deployment created", zap.String("id", d.ID), zap.String("vault", d.Vault))

	return c.handle(d), nil
}

// Get fetches a deployment by id, served from the 60s cache when fresh.
func (c *Client) Get(ctx context.Context, id string) (*Handle, error) {
	if id == "" {
		return nil, &model.ValidationError{Field: "id", Msg: "must not be empty"}
	}

	if d, ok := c.deps.Get(id); ok {
		return c.handle(d), nil
	}

	var d model.Deployment
	if err := c.api.Request(ctx, http.MethodGet, "/deployment/"+id, nil, &d); err != nil {
		return nil, err
	}

	c.deps.Put(id, d)

	return c.handle(d), nil
}

// List returns all deployments of the authenticated wallet, in the server's
// order.
func (c *Client) List(ctx context.Context) ([]*Handle, error) {
	var ds []model.Deployment
	if err := c.api.Request(ctx, http.MethodGet, "/deployments", nil, &ds); err != nil {
		return nil, err
	}

	hs := make([]*Handle, len(ds))
	for i, d := range ds {
		hs[i] = c.handle(d)
	}

	return hs, nil
}

// Start asks the manager to start a deployment. The cached record is
// invalidated so the next Get reflects the transition.
func (c *Client) Start(ctx context.Context, id string) (model.StatusResponse, error) {
	return c.transition(ctx, http.MethodPost, id, "start")
}

// Stop asks the manager to stop a running deployment.
func (c *Client) Stop(ctx context.Context, id string) (model.StatusResponse, error) {
	return c.transition(ctx, http.MethodPost, id, "stop")
}

// Archive archives a deployment.
func (c *Client) Archive(ctx context.Context, id string) (model.StatusResponse, error) {
	return c.transition(ctx, http.MethodPatch, id, "archive")
}

func (c *Client) transition(ctx context.Context, method, id, action string) (model.StatusResponse, error) {
	var out model.StatusResponse

	if id == "" {
		return out, &model.ValidationError{Field: "id", Msg: "must not be empty"}
	}

	if err := c.api.Request(ctx, method, "/deployment/"+id+"/"+action, nil, &out); err != nil {
		return out, err
	}

	c.deps.Remove(id)
	c.log.Info("deployment transition requested",
		zap.String("id", id), zap.String("action", action), zap.String("status", string(out.Status)))

	return out, nil
}

// UpdateReplicaCount changes the replica count of a deployment.
func (c *Client) UpdateReplicaCount(ctx context.Context, id string, replicas int) (model.ReplicasResponse, error) {
	var out model.ReplicasResponse

	req := model.UpdateReplicasRequest{Replicas: replicas}
	if err := req.Validate(); err != nil {
		return out, err
	}

	if err := c.api.Request(ctx, http.MethodPatch, "/deployment/"+id+"/update-replica-count", req, &out); err != nil {
		return out, err
	}

	c.deps.Remove(id)

	return out, nil
}

// UpdateTimeout changes the timeout of a deployment.
func (c *Client) UpdateTimeout(ctx context.Context, id string, timeout int) (model.TimeoutResponse, error) {
	var out model.TimeoutResponse

	req := model.UpdateTimeoutRequest{Timeout: timeout}
	if err := req.Validate(); err != nil {
		return out, err
	}

	if err := c.api.Request(ctx, http.MethodPatch, "/deployment/"+id+"/update-timeout", req, &out); err != nil {
		return out, err
	}

	c.deps.Remove(id)

	return out, nil
}

// Tasks returns the scheduled tasks of a deployment, served from the 30s
// cache when fresh.
func (c *Client) Tasks(ctx context.Context, id string) ([]model.Task, error) {
	if id == "" {
		return nil, &model.ValidationError{Field: "id", Msg: "must not be empty"}
	}

	if ts, ok := c.tasks.Get(id); ok {
		return ts, nil
	}

	var ts []model.Task
	if err := c.api.Request(ctx, http.MethodGet, "/deployment/"+id+"/tasks", nil, &ts); err != nil {
		return nil, err
	}

	c.tasks.Put(id, ts)

	return ts, nil
}

// Handle conveniences: each delegates to the owning client.

// Refresh re-reads the deployment, bypassing the cache.
func (h *Handle) Refresh(ctx context.Context) error {
	h.c.deps.Remove(h.ID)

	fresh, err := h.c.Get(ctx, h.ID)
	if err != nil {
		return err
	}

	h.Deployment = fresh.Deployment

	return nil
}

// Start starts this deployment.
func (h *Handle) Start(ctx context.Context) (model.StatusResponse, error) {
	return h.c.Start(ctx, h.ID)
}

// Stop stops this deployment.
func (h *Handle) Stop(ctx context.Context) (model.StatusResponse, error) {
	return h.c.Stop(ctx, h.ID)
}

// Archive archives this deployment.
func (h *Handle) Archive(ctx context.Context) (model.StatusResponse, error) {
	return h.c.Archive(ctx, h.ID)
}

// Tasks lists this deployment's scheduled tasks.
func (h *Handle) Tasks(ctx context.Context) ([]model.Task, error) {
	return h.c.Tasks(ctx, h.ID)
}

// Vault returns the funding vault handle of this deployment.
func (h *Handle) Vault() (*Vault, error) {
	return h.c.Vault(h.Deployment.Vault)
}

// Op is one step of a Pipe sequence.
type Op func(ctx context.Context, h *Handle) error

// Pipe fetches a deployment and applies the operations in order, stopping
// at the first error.
func (c *Client) Pipe(ctx context.Context, id string, ops ...Op) (*Handle, error) {
	h, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, op := range ops {
		if err := op(ctx, h); err != nil {
			return h, err
		}
	}

	return h, nil
}

// StartOp starts the deployment within a Pipe sequence.
func StartOp() Op {
	return func(ctx context.Context, h *Handle) error {
		_, err := h.Start(ctx)

		return err
	}
}

// StopOp stops the deployment within a Pipe sequence.
func StopOp() Op {
	return func(ctx context.Context, h *Handle) error {
		_, err := h.Stop(ctx)

		return err
	}
}

// ArchiveOp archives the deployment within a Pipe sequence.
func ArchiveOp() Op {
	return func(ctx context.Context, h *Handle) error {
		_, err := h.Archive(ctx)

		return err
	}
}
