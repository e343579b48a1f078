package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/edudesk/edudesk-cbt/internal/storage"
)

var ErrRenderTimeout = errors.New("report render timed out")

// Renderer turns an aggregated report into a downloadable artifact. The
// concrete implementation (HTML/PDF templating) lives outside the core.
type Renderer interface {
	Render(ctx context.Context, rep StudentReport) ([]byte, error)
}

// JSONRenderer is the built-in stand-in; template-based HTML/PDF rendering is
// supplied by the web layer.
type JSONRenderer struct{}

func (JSONRenderer) Render(_ context.Context, rep StudentReport) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}

// RenderPool bounds concurrent renders and applies a hard timeout. A worker
// that outlives the timeout is abandoned, not cancelled; its result is
// discarded and never reaches the artifact store, so late side effects stay
// invisible.
type RenderPool struct {
	renderer  Renderer
	artifacts storage.BlobStore
	sem       *semaphore.Weighted
	timeout   time.Duration
}

func NewRenderPool(r Renderer, artifacts storage.BlobStore, workers int64, timeout time.Duration) *RenderPool {
	if workers < 1 {
		workers = 1
	}
	return &RenderPool{
		renderer:  r,
		artifacts: artifacts,
		sem:       semaphore.NewWeighted(workers),
		timeout:   timeout,
	}
}

// Render blocks for a worker slot, renders with the hard timeout, and on
// success stores the artifact under the returned key.
func (p *RenderPool) Render(ctx context.Context, rep StudentReport) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}

	type outcome struct {
		data []byte
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer p.sem.Release(1)
		data, err := p.renderer.Render(ctx, rep)
		done <- outcome{data: data, err: err}
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			return "", out.err
		}
		key := fmt.Sprintf("reports/%s/%s/%s.html", rep.TermID, rep.ClassID, rep.StudentID)
		if _, err := p.artifacts.Put(key, bytes.NewReader(out.data)); err != nil {
			return "", err
		}
		return key, nil
	case <-timer.C:
		log.Printf("render abandoned after %s (student=%s term=%s)", p.timeout, rep.StudentID, rep.TermID)
		return "", ErrRenderTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
