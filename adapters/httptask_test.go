package adapters

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/foldflow/pipeline/runtime"
	"github.com/foldflow/pipeline/store/mem"
	"github.com/foldflow/pipeline/types"
)

func testTaskContext(p types.Pipeline) types.TaskContext {
	return types.TaskContext{
		Pipeline:     p,
		Client:       http.DefaultClient,
		SessionID:    "session-test",
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  time.Second,
	}
}

func TestHTTPAdapterValidate(t *testing.T) {
	a := &HTTPAdapter{}
	node := &types.PipelineNode{ID: "call", Type: types.NodeTypeHTTP, Config: types.Data{}}
	err := a.Validate(node, types.Data{})
	assert.True(t, types.IsValidationError(err))
	assert.Contains(t, err.Error(), "missing url")
}

func TestHTTPAdapterSynchronousSuccess(t *testing.T) {
	var authHeader, gotQuery, gotBody atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader.Store(r.Header.Get("Authorization"))
		gotQuery.Store(r.URL.Query().Get("chain"))
		buf, _ := io.ReadAll(r.Body)
		gotBody.Store(string(buf))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","data":{"echo":"ok"}}`))
	}))
	defer server.Close()

	node := &types.PipelineNode{
		ID:   "call",
		Type: types.NodeTypeHTTP,
		Config: types.Data{
			"method": "POST",
			"url":    server.URL + "/run",
			"query":  map[string]any{"chain": "{{input.chain}}"},
			"body":   `{"file":"{{input.filename}}"}`,
			"auth":   map[string]any{"type": "bearer", "token": "tok-1"},
		},
	}
	input := types.Data{"chain": "A", "filename": "4ins.pdb"}

	a := &HTTPAdapter{}
	result, err := a.Execute(context.Background(), testTaskContext(types.Pipeline{}), node, input)
	assert.Nil(t, err)

	echo, _ := result.Data.GetString("echo")
	assert.Equal(t, "ok", echo)
	assert.Equal(t, "Bearer tok-1", authHeader.Load())
	assert.Equal(t, "A", gotQuery.Load())
	assert.Equal(t, `{"file":"4ins.pdb"}`, gotBody.Load())

	// the exchange is captured for the execution log
	assert.Equal(t, "POST", result.Request.Method)
	assert.Equal(t, http.StatusOK, result.Response.StatusCode)
	assert.Contains(t, result.Response.Body, "success")
}

func TestHTTPAdapterBasicAuth(t *testing.T) {
	var header atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	node := &types.PipelineNode{
		ID:   "call",
		Type: types.NodeTypeHTTP,
		Config: types.Data{
			"url":  server.URL,
			"auth": map[string]any{"type": "basic", "username": "ada", "password": "pw"},
		},
	}
	a := &HTTPAdapter{}
	_, err := a.Execute(context.Background(), testTaskContext(types.Pipeline{}), node, types.Data{})
	assert.Nil(t, err)

	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("ada:pw"))
	assert.Equal(t, expected, header.Load())
}

func TestHTTPAdapterServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	node := &types.PipelineNode{ID: "call", Type: types.NodeTypeHTTP, Config: types.Data{"url": server.URL}}
	a := &HTTPAdapter{}
	result, err := a.Execute(context.Background(), testTaskContext(types.Pipeline{}), node, types.Data{})

	assert.NotNil(t, err)
	assert.True(t, types.IsJobFailedError(err))
	// even on failure the captured response survives for diagnosis
	assert.Equal(t, http.StatusInternalServerError, result.Response.StatusCode)
}

func TestHTTPAdapterAsyncPolling(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"accepted","job_id":"j1"}`))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&polls, 1)
		if n < 3 {
			w.Write([]byte(`{"status":"running","progress":30}`))
			return
		}
		w.Write([]byte(`{"status":"completed","result":{"output_file":"x.pdb"}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	node := &types.PipelineNode{
		ID:   "call",
		Type: types.NodeTypeHTTP,
		Config: types.Data{
			"method":   "POST",
			"url":      server.URL + "/submit",
			"poll_url": server.URL + "/status",
		},
	}
	a := &HTTPAdapter{}
	result, err := a.Execute(context.Background(), testTaskContext(types.Pipeline{}), node, types.Data{})

	assert.Nil(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&polls))
	file, _ := result.Data.GetString("output_file")
	assert.Equal(t, "x.pdb", file)
}

// Three generic HTTP nodes in a line, all synchronous successes: the whole
// pipeline completes with three success nodes and three log entries.
func TestLinearHTTPPipeline(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"status":"success","data":{"step":"` + r.URL.Path + `"}}`))
	}))
	defer server.Close()

	p := types.NewPipeline("http-chain")
	for _, id := range []string{"a", "b", "c"} {
		p = p.AddNode(&types.PipelineNode{
			ID:     id,
			Type:   types.NodeTypeHTTP,
			Config: types.Data{"url": server.URL + "/" + id},
		})
	}
	p = p.AddEdge("a", "b")
	p = p.AddEdge("b", "c")

	opts := types.NewEngineOptions()
	o := runtime.NewOrchestrator(p, NewDefaultRegistry(), mem.NewMemStore(), opts)

	assert.Nil(t, o.RunPipeline(context.Background(), false))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	snapshot := o.Snapshot()
	for _, node := range snapshot.Nodes {
		assert.Equal(t, types.NodeSuccess, node.Status, "node %s", node.ID)
		step, _ := node.ResultMetadata.GetString("step")
		assert.Equal(t, "/"+node.ID, step)
	}

	sessions := o.Sessions()
	assert.Equal(t, 1, len(sessions))
	assert.Equal(t, types.SessionCompleted, sessions[0].Status)
	assert.Equal(t, 3, len(sessions[0].Entries))
}
