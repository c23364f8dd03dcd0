package standalone

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"vawter.tech/stopper"
)

// maxConsoleLine bounds the length of a single console line the drain will
// buffer before the scanner gives up on the stream.
const maxConsoleLine = 1 << 20

// ConsoleDrain continuously reads a process's merged output stream so the
// child never blocks on a full pipe. Each line is echoed to the sink in
// order. When a line contains the shutdown marker, a one-shot completion
// signal fires; later matches are no-ops.
type ConsoleDrain struct {
	sink     io.Writer
	marker   string
	shutdown chan struct{}
	once     sync.Once
	sctx     *stopper.Context
}

// StartConsoleDrain launches a drain goroutine over r. Lines are written to
// sink; marker is the shutdown-completion substring to watch for. The drain
// runs until r reaches EOF or fails; read errors end it silently.
func StartConsoleDrain(r io.Reader, sink io.Writer, marker string) *ConsoleDrain {
	d := &ConsoleDrain{
		sink:     sink,
		marker:   marker,
		shutdown: make(chan struct{}),
		sctx:     stopper.WithContext(context.Background()),
	}

	d.sctx.Go(func(_ *stopper.Context) error {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxConsoleLine)
		for scanner.Scan() {
			line := scanner.Text()
			fmt.Fprintln(d.sink, line)
			if strings.Contains(line, d.marker) {
				d.once.Do(func() { close(d.shutdown) })
			}
		}
		// Scanner errors mean the stream is gone; the process teardown
		// path is responsible for any reporting.
		return nil
	})

	return d
}

// AwaitShutdown blocks until the shutdown marker has been seen or the
// timeout elapses, whichever comes first. It reports whether the marker was
// observed; a timeout is a best-effort miss, not a failure.
func (d *ConsoleDrain) AwaitShutdown(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-d.shutdown:
		return true
	case <-timer.C:
		return false
	}
}

// Wait blocks until the drain goroutine has finished, which happens when
// the stream reaches EOF after the process exits.
func (d *ConsoleDrain) Wait() error {
	d.sctx.Stop(time.Second)
	return d.sctx.Wait()
}
