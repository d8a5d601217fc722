package runtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/foldflow/pipeline/store"
	"github.com/foldflow/pipeline/types"
	"github.com/foldflow/pipeline/utils"
)

const (
	DraftPath    = "/draft/"
	PipelinePath = "/pipeline/"
	SessionPath  = "/session/"

	draftKey = "current"
)

// Orchestrator owns the current pipeline and its execution state. The pipeline
// value is swapped wholesale under the mutex on every mutation, so readers of a
// snapshot never block and never observe a torn update. One logical execution
// loop runs at a time; nodes execute strictly in resolved topological order.
type Orchestrator struct {
	mu       sync.Mutex
	pipeline types.Pipeline

	registry types.AdapterRegistry
	store    store.Store
	history  *history

	client       types.Doer
	apiBaseURL   string
	pollInterval time.Duration
	pollTimeout  time.Duration

	executing bool
	stopRun   context.CancelFunc
	sessionID string
}

func NewOrchestrator(p types.Pipeline, registry types.AdapterRegistry, s store.Store, opts *types.EngineOptions) *Orchestrator {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Orchestrator{
		pipeline:     p,
		registry:     registry,
		store:        s,
		history:      newHistory(opts.HistoryLimit),
		client:       client,
		apiBaseURL:   opts.APIBaseURL,
		pollInterval: opts.PollInterval,
		pollTimeout:  opts.PollTimeout,
	}
}

// Snapshot returns the current immutable pipeline value.
func (o *Orchestrator) Snapshot() types.Pipeline {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pipeline
}

func (o *Orchestrator) mutate(f func(types.Pipeline) types.Pipeline) {
	o.mu.Lock()
	o.pipeline = f(o.pipeline)
	p := o.pipeline
	o.mu.Unlock()

	o.saveDraft(context.Background(), p)
}

func (o *Orchestrator) AddNode(node *types.PipelineNode) {
	o.mutate(func(p types.Pipeline) types.Pipeline { return p.AddNode(node) })
}

func (o *Orchestrator) UpdateNode(id string, update types.NodeUpdate) {
	o.mutate(func(p types.Pipeline) types.Pipeline { return p.UpdateNode(id, update) })
}

func (o *Orchestrator) DeleteNode(id string) {
	o.mutate(func(p types.Pipeline) types.Pipeline { return p.DeleteNode(id) })
}

func (o *Orchestrator) AddEdge(source, target string) {
	o.mutate(func(p types.Pipeline) types.Pipeline { return p.AddEdge(source, target) })
}

func (o *Orchestrator) DeleteEdge(source, target string) {
	o.mutate(func(p types.Pipeline) types.Pipeline { return p.DeleteEdge(source, target) })
}

// Sessions returns sealed past sessions, most recent first.
func (o *Orchestrator) Sessions() []*types.ExecutionSession {
	return o.history.sessions()
}

// CurrentSession returns the mutable in-flight session, or nil.
func (o *Orchestrator) CurrentSession() *types.ExecutionSession {
	return o.history.currentSession()
}

// Stop aborts the in-flight run. The poll loop observes it within one polling
// interval; the session is sealed as stopped, not dropped.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.stopRun
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// RunPipeline executes every node in resolved order. Nodes already terminal
// success are skipped unless force is set. One node failing never halts the
// run; downstream nodes simply fail their own input validation.
func (o *Orchestrator) RunPipeline(ctx context.Context, force bool) error {
	return o.run(ctx, force, nil)
}

// ExecuteNode re-runs a single node without touching its upstream: identical
// machinery with an execution order of length one.
func (o *Orchestrator) ExecuteNode(ctx context.Context, nodeID string) error {
	return o.run(ctx, true, &nodeID)
}

func (o *Orchestrator) run(ctx context.Context, force bool, onlyNode *string) error {
	o.mu.Lock()
	if o.executing {
		o.mu.Unlock()
		return errors.AlreadyExistsf("pipeline %q is already executing", o.pipeline.Name)
	}
	o.executing = true
	snapshot := o.pipeline
	o.mu.Unlock()

	order, err := o.resolveOrder(snapshot, onlyNode)
	if err != nil {
		o.clearExecuting()
		return errors.Trace(err)
	}

	adapters, err := o.resolveAdapters(snapshot, order)
	if err != nil {
		o.clearExecuting()
		return errors.Trace(err)
	}

	if err := o.validationGate(snapshot, order, adapters, force); err != nil {
		o.clearExecuting()
		return errors.Trace(err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.stopRun = cancel
	o.pipeline = o.pipeline.WithStatus(types.PipelineRunning)
	o.mu.Unlock()
	defer cancel()

	session := o.history.beginSession()
	o.mu.Lock()
	o.sessionID = session.ID
	o.mu.Unlock()

	o.markPending(order, force)

	log.Infof("session %s: executing %d node(s)", session.ID, len(order))

	failed := false
	for _, nodeID := range order {
		if runCtx.Err() != nil {
			break
		}
		outcome := o.executeOne(runCtx, session.ID, nodeID, force)
		if outcome == nodeOutcomeFailed {
			failed = true
		}
	}

	o.sealRun(runCtx, failed)
	return nil
}

func (o *Orchestrator) clearExecuting() {
	o.mu.Lock()
	o.executing = false
	o.mu.Unlock()
}

type nodeOutcome int

const (
	nodeOutcomeSkipped nodeOutcome = iota
	nodeOutcomeSucceeded
	nodeOutcomeFailed
)

func (o *Orchestrator) resolveOrder(p types.Pipeline, onlyNode *string) ([]string, error) {
	if onlyNode != nil {
		if _, ok := p.Node(*onlyNode); !ok {
			return nil, errors.NotFoundf("node %q", *onlyNode)
		}
		return []string{*onlyNode}, nil
	}
	order, err := TopologicalSort(p.Name, p.Nodes, p.Edges)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return order, nil
}

// resolveAdapters fails the whole run before any node executes when a node's
// type has no adapter, distinct from a mid-run node failure.
func (o *Orchestrator) resolveAdapters(p types.Pipeline, order []string) (map[string]types.Adapter, error) {
	adapters := make(map[string]types.Adapter, len(order))
	for _, id := range order {
		node, _ := p.Node(id)
		adapter, err := o.registry.Resolve(node.Type)
		if err != nil {
			return nil, errors.Trace(err)
		}
		adapters[id] = adapter
	}
	return adapters, nil
}

// validationGate refuses to start when an input-provider node (no upstream)
// lacks its mandatory configuration. The invalid node is marked error and no
// network calls occur.
func (o *Orchestrator) validationGate(p types.Pipeline, order []string, adapters map[string]types.Adapter, force bool) error {
	for _, id := range order {
		node, _ := p.Node(id)
		if len(p.Upstreams(id)) > 0 {
			continue
		}
		if node.Status == types.NodeSuccess && !force {
			continue
		}
		if err := adapters[id].Validate(node, p.ResolveInput(id)); err != nil {
			msg := err.Error()
			o.setNodeStatus(id, types.NodeError, &msg)
			return errors.Trace(err)
		}
	}
	return nil
}

func (o *Orchestrator) markPending(order []string, force bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := types.NodePending
	for _, id := range order {
		node, ok := o.pipeline.Node(id)
		if !ok {
			continue
		}
		if node.Status == types.NodeSuccess && !force {
			continue
		}
		o.pipeline = o.pipeline.UpdateNode(id, types.NodeUpdate{Status: &status})
	}
}

func (o *Orchestrator) executeOne(ctx context.Context, sessionID, nodeID string, force bool) nodeOutcome {
	snapshot := o.Snapshot()
	node, ok := snapshot.Node(nodeID)
	if !ok {
		// deleted mid-run, nothing to do
		return nodeOutcomeSkipped
	}
	if node.Status == types.NodeSuccess && !force {
		log.Debugf("session %s: node %s already succeeded, skipped", sessionID, nodeID)
		return nodeOutcomeSkipped
	}

	adapter, err := o.registry.Resolve(node.Type)
	if err != nil {
		msg := err.Error()
		o.setNodeStatus(nodeID, types.NodeError, &msg)
		return nodeOutcomeFailed
	}

	input := snapshot.ResolveInput(nodeID)

	o.setNodeStatus(nodeID, types.NodeRunning, nil)
	o.history.addLogEntry(&types.ExecutionLogEntry{
		NodeID:    nodeID,
		NodeLabel: node.Label,
		NodeType:  node.Type,
		Status:    types.NodeRunning,
		StartedAt: time.Now(),
		Input:     input.Clone(),
	})

	if err := adapter.Validate(node, input); err != nil {
		o.finishNode(nodeID, nil, err)
		return nodeOutcomeFailed
	}

	tc := types.TaskContext{
		Pipeline:     snapshot,
		Client:       o.client,
		SessionID:    sessionID,
		APIBaseURL:   o.apiBaseURL,
		PollInterval: o.pollInterval,
		PollTimeout:  o.pollTimeout,
		OnProgress: func(id, message string, percent float64) {
			log.Debugf("session %s: node %s %.0f%% %s", sessionID, id, percent, message)
		},
	}

	result, err := adapter.Execute(ctx, tc, node, input)
	o.finishNode(nodeID, result, err)
	if err != nil {
		return nodeOutcomeFailed
	}
	return nodeOutcomeSucceeded
}

// finishNode moves the node and its open log entry to a terminal state. A nil
// err means success; a non-nil result may still carry the captured request and
// response of a failed call for diagnosis.
func (o *Orchestrator) finishNode(nodeID string, result *types.TaskResult, err error) {
	now := time.Now()
	update := types.LogUpdate{CompletedAt: &now}
	if result != nil {
		update.Request = result.Request
		update.Response = result.Response
	}

	if err != nil {
		msg := err.Error()
		status := types.NodeError
		update.Status = &status
		update.Error = &msg
		o.history.updateLogEntry(nodeID, update)
		o.setNodeStatus(nodeID, types.NodeError, &msg)
		log.Errorf("node %s failed: %v", nodeID, err)
		return
	}

	status := types.NodeSuccess
	update.Status = &status
	if result != nil {
		update.Output = result.Data
	}
	o.history.updateLogEntry(nodeID, update)

	o.mu.Lock()
	empty := ""
	nodeUpdate := types.NodeUpdate{Status: &status, Error: &empty}
	if result != nil {
		nodeUpdate.ResultMetadata = result.Data
	}
	o.pipeline = o.pipeline.UpdateNode(nodeID, nodeUpdate)
	o.mu.Unlock()
}

func (o *Orchestrator) setNodeStatus(nodeID string, status types.NodeStatus, errMsg *string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pipeline = o.pipeline.UpdateNode(nodeID, types.NodeUpdate{Status: &status, Error: errMsg})
}

// sealRun closes the session, reconciles node statuses and persists the draft
// and the sealed session. A node must never remain running after its owning
// session has ended: any such node is corrected to success when it already
// holds output, else to error.
func (o *Orchestrator) sealRun(runCtx context.Context, failed bool) {
	stopped := runCtx.Err() != nil

	o.mu.Lock()
	for _, node := range o.pipeline.Nodes {
		switch node.Status {
		case types.NodeRunning, types.NodePending:
			if len(node.ResultMetadata) > 0 {
				status := types.NodeSuccess
				o.pipeline = o.pipeline.UpdateNode(node.ID, types.NodeUpdate{Status: &status})
			} else {
				status := types.NodeError
				msg := "execution stopped"
				o.pipeline = o.pipeline.UpdateNode(node.ID, types.NodeUpdate{Status: &status, Error: &msg})
			}
		}
	}
	o.pipeline = o.pipeline.WithStatus(types.PipelineCompleted)
	o.executing = false
	o.stopRun = nil
	o.sessionID = ""
	p := o.pipeline
	o.mu.Unlock()

	status := types.SessionCompleted
	switch {
	case stopped:
		status = types.SessionStopped
	case failed:
		status = types.SessionFailed
	}
	sealed := o.history.seal(status)
	if sealed != nil {
		log.Infof("session %s sealed: %s", sealed.ID, status)
		o.saveSession(context.Background(), sealed)
	}
	o.saveDraft(context.Background(), p)
}

func (o *Orchestrator) saveDraft(ctx context.Context, p types.Pipeline) {
	b, err := utils.Serialize(p)
	if err != nil {
		log.Errorf("serialize draft: %v", err)
		return
	}
	if err := o.store.Set(ctx, DraftPath, draftKey, b); err != nil {
		log.Errorf("save draft: %v", err)
	}
}

// LoadDraft restores the last saved draft as the current pipeline.
func (o *Orchestrator) LoadDraft(ctx context.Context) error {
	b, err := o.store.Get(ctx, DraftPath, draftKey)
	if err != nil {
		return errors.Trace(err)
	}
	if b == nil {
		return errors.NotFoundf("draft")
	}
	var p types.Pipeline
	if err := utils.Unserialize(b, &p); err != nil {
		return errors.Trace(err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.executing {
		return errors.MethodNotAllowedf("cannot load draft while executing")
	}
	o.pipeline = p
	return nil
}

// SavePipeline stores the current pipeline under a durable name, distinct from
// the draft.
func (o *Orchestrator) SavePipeline(ctx context.Context, name string) error {
	if name == "" {
		return errors.BadRequestf("pipeline name is empty")
	}
	o.mu.Lock()
	p := o.pipeline
	p.Name = name
	o.mu.Unlock()

	b, err := utils.Serialize(p)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(o.store.Set(ctx, PipelinePath, name, b))
}

// LoadPipeline replaces the current pipeline with a saved one.
func (o *Orchestrator) LoadPipeline(ctx context.Context, name string) error {
	b, err := o.store.Get(ctx, PipelinePath, name)
	if err != nil {
		return errors.Trace(err)
	}
	if b == nil {
		return errors.NotFoundf("pipeline %q", name)
	}
	var p types.Pipeline
	if err := utils.Unserialize(b, &p); err != nil {
		return errors.Trace(err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.executing {
		return errors.MethodNotAllowedf("cannot load pipeline while executing")
	}
	o.pipeline = p
	return nil
}

// ListPipelines returns the names of saved pipelines.
func (o *Orchestrator) ListPipelines(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	err := o.store.List(ctx, PipelinePath, func(key string) bool {
		names = append(names, key)
		return true
	})
	return names, errors.Trace(err)
}

func (o *Orchestrator) saveSession(ctx context.Context, session *types.ExecutionSession) {
	b, err := utils.Serialize(session)
	if err != nil {
		log.Errorf("serialize session %s: %v", session.ID, err)
		return
	}
	if err := o.store.Set(ctx, SessionPath, session.ID, b); err != nil {
		log.Errorf("save session %s: %v", session.ID, err)
	}
}
