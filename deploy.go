package standalone

import (
	"context"
	"fmt"
	"os"
)

// DeployOp builds a deployment operation carrying the archive content
func DeployOp(content []byte, name string) Operation {
	return Operation{
		Name:    OpDeploy,
		Address: []string{"deployment", name},
		Content: content,
	}
}

// RedeployOp builds a content-replacement operation for an existing deployment
func RedeployOp(content []byte, name string) Operation {
	return Operation{
		Name:    OpRedeploy,
		Params:  map[string]any{"name": name},
		Content: content,
	}
}

// UndeployOp builds an undeploy operation for a named deployment
func UndeployOp(name string) Operation {
	return Operation{
		Name:    OpUndeploy,
		Address: []string{"deployment", name},
	}
}

// Deploy uploads the archive at path and deploys it under the given name.
// The server must be running. When the server reports the deployment needs
// a restart, a reload operation is issued immediately afterward.
func (s *Server) Deploy(ctx context.Context, path, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := s.requireRunningContent(path)
	if err != nil {
		return err
	}
	return s.executeDeployment(ctx, DeployOp(content, name))
}

// Redeploy replaces the content of an existing deployment with the archive
// at path. The server must be running.
func (s *Server) Redeploy(ctx context.Context, path, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := s.requireRunningContent(path)
	if err != nil {
		return err
	}
	return s.executeDeployment(ctx, RedeployOp(content, name))
}

// Undeploy removes the named deployment. The server must be running.
func (s *Server) Undeploy(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.monitor.running {
		return fmt.Errorf("cannot undeploy %q: %w", name, ErrNotRunning)
	}
	return s.executeDeployment(ctx, UndeployOp(name))
}

// requireRunningContent checks the cached running flag and reads the
// archive. The flag is checked first so nothing is read or issued against
// a server that is not running.
func (s *Server) requireRunningContent(path string) ([]byte, error) {
	if !s.monitor.running {
		return nil, fmt.Errorf("cannot deploy %q: %w", path, ErrNotRunning)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &OpError{Op: OpDeploy, Path: path, Err: err}
	}
	return content, nil
}

// executeDeployment runs a deployment operation and handles its outcome
// exhaustively, issuing a reload when the server requires a restart.
func (s *Server) executeDeployment(ctx context.Context, op Operation) error {
	res, err := s.client.Execute(ctx, op)
	if err != nil {
		return &OpError{Op: op.Name, Path: addressString(op.Address), Err: err}
	}

	switch outcome := classifyDeploy(res); outcome {
	case DeploySuccess:
		s.logger.Info("deployment succeeded", "op", op.Name)
	case DeployRequiresRestart:
		s.logger.Info("deployment requires restart, reloading", "op", op.Name)
		if _, err := s.client.Execute(ctx, ReloadOp()); err != nil {
			return &OpError{Op: OpReload, Path: "/", Err: err}
		}
	case DeployFailed:
		return &OpError{
			Op:   op.Name,
			Path: addressString(op.Address),
			Err:  fmt.Errorf("%w: %s", ErrDeployFailed, res.FailureDescription),
		}
	default:
		return fmt.Errorf("unexpected deployment outcome %v: %w", outcome, ErrDeployFailed)
	}
	return nil
}

// addressString renders an operation address for error messages
func addressString(address []string) string {
	if len(address) == 0 {
		return "/"
	}
	out := ""
	for i := 0; i+1 < len(address); i += 2 {
		out += "/" + address[i] + "=" + address[i+1]
	}
	return out
}
