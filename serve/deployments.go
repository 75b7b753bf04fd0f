package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDeploymentFinished is returned when cancelling a deployment that already
// reached a final state.
var ErrDeploymentFinished = errors.New("deployment already finished")

var deploymentSteps = []string{"validate", "create_agent", "deploy_agent"}

// deployManager runs deployments in the background and keeps their records
// current in the store.
type deployManager struct {
	store    Store
	deployer Deployer
	timeout  time.Duration
	events   *EventBroker

	mu        sync.Mutex
	running   map[string]context.CancelFunc
	cancelled map[string]bool
	wg        sync.WaitGroup
}

func newDeployManager(store Store, deployer Deployer, timeout time.Duration) *deployManager {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &deployManager{
		store:     store,
		deployer:  deployer,
		timeout:   timeout,
		events:    NewEventBroker(),
		running:   make(map[string]context.CancelFunc),
		cancelled: make(map[string]bool),
	}
}

// start records a new deployment and runs it in a goroutine.
func (m *deployManager) start(sessionID string, config map[string]any, ready Readiness) (Deployment, error) {
	if m.deployer == nil {
		return Deployment{}, errors.New("no deployer configured")
	}

	d := Deployment{
		ID:           uuid.New().String()[:8],
		SessionID:    sessionID,
		Type:         "quick",
		Status:       DeploymentStarting,
		AppName:      ready.AppName,
		EndpointName: ready.EndpointName,
		StartedAt:    time.Now(),
	}
	for _, name := range deploymentSteps {
		d.Steps = append(d.Steps, DeploymentStep{Name: name, Status: "pending"})
	}
	if err := m.store.InsertDeployment(d); err != nil {
		return Deployment{}, fmt.Errorf("record deployment: %w", err)
	}
	m.publish("created", d)

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	m.mu.Lock()
	m.running[d.ID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.running, d.ID)
			m.mu.Unlock()
			cancel()
		}()
		m.run(ctx, d, config)
	}()

	slog.Info("deployment started", "id", d.ID, "session", sessionID, "app", d.AppName)
	return d, nil
}

func (m *deployManager) run(ctx context.Context, d Deployment, config map[string]any) {
	step := func(i int, status string) bool {
		if i > 0 {
			d.Steps[i-1].Status = "completed"
		}
		d.Steps[i].Status = "running"
		d.CurrentStep = i
		d.Status = status
		return m.save(d)
	}
	fail := func(err error) {
		now := time.Now()
		d.Status = DeploymentFailed
		d.Error = err.Error()
		d.Steps[d.CurrentStep].Status = "failed"
		d.Steps[d.CurrentStep].Error = err.Error()
		d.CompletedAt = &now
		if m.save(d) {
			slog.Error("deployment failed", "id", d.ID, "step", d.Steps[d.CurrentStep].Name, "error", err)
		}
	}

	if !step(0, DeploymentStarting) {
		return
	}
	if ready := CheckReadiness(config); !ready.Valid {
		fail(fmt.Errorf("configuration is not deployable: %s", strings.Join(ready.Errors, "; ")))
		return
	}

	if !step(1, DeploymentDeploying) {
		return
	}
	if err := m.deployer.CreateAgent(ctx, d.ID, config); err != nil {
		fail(err)
		return
	}

	if !step(2, DeploymentDeploying) {
		return
	}
	res, err := m.deployer.DeployAgent(ctx, d.ID, config)
	if err != nil {
		fail(err)
		return
	}

	if res.Message == "" {
		res.Message = "Deployment completed successfully"
	}
	out, _ := json.Marshal(res)
	now := time.Now()
	d.Steps[2].Status = "completed"
	d.Status = DeploymentCompleted
	d.Result = string(out)
	d.CompletedAt = &now
	if m.save(d) {
		slog.Info("deployment completed", "id", d.ID, "endpoint", res.EndpointName)
	}
}

// save writes d unless the deployment was cancelled in the meantime.
func (m *deployManager) save(d Deployment) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelled[d.ID] {
		return false
	}
	if err := m.store.UpdateDeployment(d); err != nil {
		slog.Error("failed to update deployment", "id", d.ID, "error", err)
	}
	m.publish("updated", d)
	return true
}

// publish sends a copy of d to event subscribers. The runner keeps mutating
// its own Steps slice after this returns.
func (m *deployManager) publish(typ string, d Deployment) {
	d.Steps = append([]DeploymentStep(nil), d.Steps...)
	m.events.Publish(DeploymentEvent{Type: typ, Deployment: d})
}

// cancel stops an in-progress deployment.
func (m *deployManager) cancel(id string) (Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.store.GetDeployment(id)
	if err != nil {
		return Deployment{}, err
	}
	if d.Done() {
		return d, ErrDeploymentFinished
	}

	now := time.Now()
	d.Status = DeploymentCancelled
	d.CompletedAt = &now
	if err := m.store.UpdateDeployment(d); err != nil {
		return Deployment{}, err
	}
	m.cancelled[id] = true
	m.publish("updated", d)
	if cancel, ok := m.running[id]; ok {
		cancel()
	}

	slog.Info("deployment cancelled", "id", id)
	return d, nil
}

// wait blocks until every running deployment returned or ctx is done.
func (m *deployManager) wait(ctx context.Context) {
	m.mu.Lock()
	for _, cancel := range m.running {
		cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	m.events.Close()
}
