package standalone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"vawter.tech/stopper"
)

// DeployEvent reports one scanner-initiated deployment attempt
type DeployEvent struct {
	// Name is the deployment name
	Name string
	// Path is the archive path
	Path string
	// Err is nil when the deployment succeeded
	Err error
}

// DeployCleanupFunc stops the scanner and waits for its goroutine to exit
type DeployCleanupFunc func() error

// WatchDeployments watches dir for hot-deploy markers and deploys through
// srv. Dropping a <archive>.dodeploy marker triggers a deployment of the
// named archive; the scanner replaces the marker with .isdeploying while
// the operation is in flight and leaves .deployed or .failed behind, the
// same protocol the server's own deployment scanner follows. Marker writes
// are atomic so observers never see a partial file.
//
// Markers already present when the watch starts are processed first. Each
// attempt produces one DeployEvent on the returned channel.
func WatchDeployments(ctx context.Context, srv *Server, dir string) (<-chan DeployEvent, DeployCleanupFunc, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, nil, &OpError{Op: OpDeploy, Path: dir, Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, &OpError{Op: OpDeploy, Path: dir, Err: err}
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, nil, &OpError{Op: OpDeploy, Path: dir, Err: err}
	}

	ch := make(chan DeployEvent, 10)

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
		close(ch)
	})

	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}

	emit := func(ev DeployEvent) {
		if sctx.IsStopping() {
			return
		}
		select {
		case ch <- ev:
		case <-sctx.Stopping():
		}
	}

	process := func(markerPath string) {
		// Create and Write often fire for the same marker; whoever
		// consumed it first wins.
		if _, err := os.Stat(markerPath); err != nil {
			return
		}
		name := strings.TrimSuffix(filepath.Base(markerPath), MarkerDoDeploy)
		archive := filepath.Join(dir, name)

		ev := DeployEvent{Name: name, Path: archive}
		ev.Err = deployMarked(ctx, srv, dir, name, archive, markerPath)
		emit(ev)
	}

	sctx.Go(func(_ *stopper.Context) error {
		// Consume markers that predate the watch.
		markers, err := filepath.Glob(filepath.Join(dir, "*"+MarkerDoDeploy))
		if err == nil {
			for _, m := range markers {
				if sctx.IsStopping() {
					return nil
				}
				process(m)
			}
		}

		for {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
					continue
				}
				if strings.HasSuffix(event.Name, MarkerDoDeploy) {
					process(event.Name)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil {
					emit(DeployEvent{Err: err})
				}
			}
		}
	})

	return ch, cleanup, nil
}

// deployMarked runs one marker-driven deployment and maintains the marker
// files around it
func deployMarked(ctx context.Context, srv *Server, dir, name, archive, markerPath string) error {
	inFlight := filepath.Join(dir, name+MarkerIsDeploying)
	if err := renameio.WriteFile(inFlight, []byte(name), MarkerFileMode); err != nil {
		return fmt.Errorf("writing %s marker: %w", MarkerIsDeploying, err)
	}
	_ = os.Remove(markerPath)

	deployErr := srv.Deploy(ctx, archive, name)

	_ = os.Remove(inFlight)
	if deployErr != nil {
		failed := filepath.Join(dir, name+MarkerFailed)
		if err := renameio.WriteFile(failed, []byte(deployErr.Error()), MarkerFileMode); err != nil {
			return fmt.Errorf("writing %s marker after %v: %w", MarkerFailed, deployErr, err)
		}
		return deployErr
	}

	deployed := filepath.Join(dir, name+MarkerDeployed)
	if err := renameio.WriteFile(deployed, []byte(name), MarkerFileMode); err != nil {
		return fmt.Errorf("writing %s marker: %w", MarkerDeployed, err)
	}
	return nil
}

// ClearStaleMarkers removes leftover transient markers from a deployment
// directory, such as .isdeploying markers orphaned by a crash. Failures
// are aggregated so one bad file does not hide the rest.
func ClearStaleMarkers(dir string) error {
	merr := &MultiError{}
	for _, suffix := range []string{MarkerIsDeploying, MarkerFailed} {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
		if err != nil {
			merr.Add(err)
			continue
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil {
				merr.Add(&OpError{Op: OpDeploy, Path: m, Err: err})
			}
		}
	}
	return merr.Err()
}
