package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awesomeproject/service/internal/queue"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type harness struct {
	broker   *queue.RedisBroker
	registry *queue.Registry
	client   *queue.Client
	router   chi.Router
}

func newHarness(t *testing.T, counter UserCounter) *harness {
	t.Helper()

	s := miniredis.RunT(t)
	pool := &redis.Pool{
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", s.Addr())
		},
	}
	t.Cleanup(func() { _ = pool.Close() })

	broker := queue.NewRedisBroker(pool, "default", time.Hour)
	reg := queue.NewRegistry()
	require.NoError(t, Register(reg, Deps{Users: counter, Logger: newLogger(&bytes.Buffer{})}))
	client := queue.NewClient(broker, reg)

	h := NewHandler(client, reg)
	r := chi.NewRouter()
	r.Get("/tasks", h.List)
	r.Post("/tasks", h.Enqueue)
	r.Get("/tasks/{id}", h.Get)

	return &harness{broker: broker, registry: reg, client: client, router: r}
}

func (h *harness) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestHandlerListsRegisteredTasks(t *testing.T) {
	h := newHarness(t, &fakeCounter{})

	code, env := h.do(t, http.MethodGet, "/tasks", "")

	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `["users.get_users_count"]`, string(env.Data))
}

func TestHandlerEnqueueValidation(t *testing.T) {
	h := newHarness(t, &fakeCounter{})

	code, _ := h.do(t, http.MethodPost, "/tasks", "not json")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(t, http.MethodPost, "/tasks", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := h.do(t, http.MethodPost, "/tasks", `{"task":"users.delete_everything"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
}

func TestHandlerGetUnknownTask(t *testing.T) {
	h := newHarness(t, &fakeCounter{})

	code, _ := h.do(t, http.MethodGet, "/tasks/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUsersCountThroughWorker(t *testing.T) {
	for _, tc := range []struct {
		name    string
		counter *fakeCounter
		status  queue.Status
	}{
		{name: "empty", counter: &fakeCounter{n: 0}, status: queue.StatusSuccess},
		{name: "five users", counter: &fakeCounter{n: 5}, status: queue.StatusSuccess},
		{name: "store down", counter: &fakeCounter{err: errors.New("store unavailable")}, status: queue.StatusFailure},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.counter)

			code, env := h.do(t, http.MethodPost, "/tasks", `{"task":"users.get_users_count"}`)
			require.Equal(t, http.StatusAccepted, code)
			var enq enqueueData
			require.NoError(t, json.Unmarshal(env.Data, &enq))

			worker := queue.NewWorker(queue.WorkerOptions{
				Broker:      h.broker,
				Registry:    h.registry,
				Logger:      newLogger(&bytes.Buffer{}),
				PollTimeout: time.Second,
			})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() { _ = worker.Run(ctx) }()

			waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
			defer waitCancel()
			res, err := h.client.Wait(waitCtx, enq.ID, 20*time.Millisecond)
			require.NoError(t, err)
			assert.Equal(t, tc.status, res.Status)

			code, env = h.do(t, http.MethodGet, "/tasks/"+enq.ID, "")
			require.Equal(t, http.StatusOK, code)
			var got queue.Result
			require.NoError(t, json.Unmarshal(env.Data, &got))
			assert.Equal(t, tc.status, got.Status)

			if tc.status == queue.StatusSuccess {
				var n int64
				require.NoError(t, got.Decode(&n))
				assert.Equal(t, tc.counter.n, n)
			} else {
				assert.Equal(t, "store unavailable", got.Error)
			}
		})
	}
}
