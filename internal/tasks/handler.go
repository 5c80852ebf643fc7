package tasks

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/awesomeproject/service/internal/queue"
	"github.com/awesomeproject/service/internal/response"
)

// Handler holds HTTP handlers for enqueuing tasks and reading their results.
type Handler struct {
	client   *queue.Client
	registry *queue.Registry
}

// NewHandler creates a new tasks Handler.
func NewHandler(client *queue.Client, registry *queue.Registry) *Handler {
	return &Handler{client: client, registry: registry}
}

type enqueueRequest struct {
	Task string          `json:"task" example:"users.get_users_count"`
	Args json.RawMessage `json:"args,omitempty" swaggertype:"object"`
}

type enqueueData struct {
	ID     string       `json:"id"     example:"0b9f1c5e-8a8e-4f43-9a1b-5b2d5f1f7c11"`
	Task   string       `json:"task"   example:"users.get_users_count"`
	Status queue.Status `json:"status" example:"PENDING"`
}

// List godoc
//
//	@Summary		List tasks
//	@Description	Returns the names of all registered tasks.
//	@Tags			tasks
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=[]string}
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Router			/tasks [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.registry.Names())
}

// Enqueue godoc
//
//	@Summary		Enqueue a task
//	@Description	Publishes an invocation of a registered task. Returns the task id immediately.
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		enqueueRequest	true	"Task name and optional arguments"
//	@Success		202		{object}	response.Envelope{data=enqueueData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/tasks [post]
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Task == "" {
		response.BadRequest(w, "task is required")
		return
	}

	var args any
	if len(req.Args) > 0 {
		args = req.Args
	}

	id, err := h.client.Enqueue(r.Context(), req.Task, args)
	if errors.Is(err, queue.ErrUnknownTask) {
		response.NotFound(w, "task not registered")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Accepted(w, enqueueData{ID: id, Task: req.Task, Status: queue.StatusPending})
}

// Get godoc
//
//	@Summary		Get task result
//	@Description	Returns the status of a task invocation and, once finished, its value or error.
//	@Tags			tasks
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Task id"
//	@Success		200	{object}	response.Envelope{data=queue.Result}
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/tasks/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := h.client.Result(r.Context(), id)
	if errors.Is(err, queue.ErrNoResult) {
		response.NotFound(w, "task not found")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, res)
}
