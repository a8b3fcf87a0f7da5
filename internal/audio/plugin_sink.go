package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/zengarden/internal/plugin"
)

// ErrSinkBusy is returned when the plugin queue is full and a cue is dropped.
var ErrSinkBusy = errors.New("sound plugin busy")

// ErrSinkClosed is returned after Close.
var ErrSinkClosed = errors.New("sound plugin sink closed")

const pluginQueueSize = 8

type pluginJob struct {
	cue  Cue
	file string
}

// PluginSink hands cues to a sound plugin on a background worker so the
// control loop never waits on the plugin process.
type PluginSink struct {
	executor *plugin.Executor
	plugin   *plugin.Plugin
	session  string

	mu     sync.Mutex
	closed bool
	jobs   chan pluginJob
	done   chan struct{}
	cancel context.CancelFunc
}

// NewPluginSink starts a sink that runs p through executor.
func NewPluginSink(executor *plugin.Executor, p *plugin.Plugin, session string) *PluginSink {
	ctx, cancel := context.WithCancel(context.Background())
	s := &PluginSink{
		executor: executor,
		plugin:   p,
		session:  session,
		jobs:     make(chan pluginJob, pluginQueueSize),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	go s.run(ctx)
	return s
}

// PlayCue queues the cue for the plugin. Cues the plugin did not declare
// are ignored.
func (s *PluginSink) PlayCue(cue Cue, sound *Sound) error {
	if !s.plugin.Manifest.Handles(string(cue)) {
		return nil
	}
	job := pluginJob{cue: cue}
	if sound != nil {
		job.file = sound.Path
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrSinkBusy
	}
}

func (s *PluginSink) run(ctx context.Context) {
	defer close(s.done)
	for job := range s.jobs {
		if ctx.Err() != nil {
			continue
		}
		req := &plugin.Request{Cue: string(job.cue), File: job.file, Session: s.session}
		resp, err := s.executor.Execute(ctx, s.plugin, req)
		if err != nil {
			log.Printf("audio: plugin %s: %v", s.plugin.Manifest.Name, err)
			continue
		}
		if !resp.Success {
			log.Printf("audio: plugin %s: %s", s.plugin.Manifest.Name, resp.Error)
		}
	}
}

// Close stops the worker. Queued cues are dropped and a running plugin
// call is cancelled.
func (s *PluginSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()
	close(s.jobs)
	s.mu.Unlock()

	<-s.done
	return nil
}

// String names the sink in logs.
func (s *PluginSink) String() string {
	return fmt.Sprintf("plugin:%s", s.plugin.Manifest.Name)
}
