// Header regeneration on selection file changes
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package watch keeps a rendered header in sync with its selection file.
package watch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"

	"ufwcfg/pkg/config"
	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/header"
	"ufwcfg/pkg/log"
	"ufwcfg/pkg/metrics"
	"ufwcfg/pkg/resolve"
	"ufwcfg/pkg/selection"
	"ufwcfg/pkg/source"
)

// DefaultDebounce is how long to wait after the last change before
// regenerating. Editors often write a file in several steps.
const DefaultDebounce = 200 * time.Millisecond

var logger = log.GetLogger("watch")

// LoadFunc reads a selection file.
type LoadFunc func(path string) (selection.Selection, []selection.Warning, error)

// Options configures a Watcher.
type Options struct {
	// Input is the selection file. Extra lists further files whose changes
	// also trigger a regeneration, such as INI includes.
	Input string
	Extra []string

	// Output is the header path written on every valid change.
	Output string
	Header header.Options

	Debounce time.Duration
	Load     LoadFunc
	Metrics  *metrics.Metrics

	// OnResult is called after every regeneration attempt.
	OnResult func(Result)
}

// Result describes one regeneration attempt.
type Result struct {
	Written  bool
	Digest   string
	Warnings []string
	// Changed names the selection sections that differ from the last
	// selection that loaded. Empty on the first run.
	Changed []string
	Took    time.Duration
	Err     error
}

// Watcher regenerates Output whenever Input changes. An invalid selection
// leaves the last good header in place.
type Watcher struct {
	opts    Options
	watched map[string]bool

	mu   sync.Mutex
	last Result
	prev *config.Config
}

// New checks opts and fills defaults.
func New(opts Options) (*Watcher, error) {
	if opts.Input == "" || opts.Output == "" {
		return nil, errors.New(errors.ErrConfigValidation, "watch needs both an input and an output path")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Load == nil {
		opts.Load = func(path string) (selection.Selection, []selection.Warning, error) {
			return source.Load(path, nil)
		}
	}
	w := &Watcher{opts: opts, watched: map[string]bool{}}
	for _, p := range append([]string{opts.Input}, opts.Extra...) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("watch: invalid path %s: %w", p, err)
		}
		w.watched[abs] = true
	}
	return w, nil
}

// Last returns the most recent result.
func (w *Watcher) Last() Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Regenerate loads, resolves and renders once. The header is only replaced
// when its content changes.
func (w *Watcher) Regenerate() Result {
	start := time.Now()
	res, outcome := w.regenerate()
	res.Took = time.Since(start)

	w.opts.Metrics.Observe(outcome, res.Took, len(res.Warnings))
	fields := log.Fields{"input": w.opts.Input, "result": outcome, "took": res.Took.String()}
	switch {
	case res.Err != nil:
		logger.WithFields(fields).WithError(res.Err).Error("regeneration failed")
	case res.Written:
		logger.WithFields(fields).WithFields(log.Fields{"output": w.opts.Output, "sections": res.Changed}).Info("header written")
	default:
		logger.WithFields(fields).Debug("header unchanged")
	}

	w.mu.Lock()
	w.last = res
	w.mu.Unlock()
	if w.opts.OnResult != nil {
		w.opts.OnResult(res)
	}
	return res
}

func (w *Watcher) regenerate() (Result, string) {
	sel, warnings, err := w.opts.Load(w.opts.Input)
	if err != nil {
		return Result{Err: err}, outcomeFor(err)
	}
	r, err := resolve.New(sel)
	if err != nil {
		return Result{Err: err}, outcomeFor(err)
	}
	var res Result
	res.Changed = w.diffSections(sel)
	for _, wr := range warnings {
		res.Warnings = append(res.Warnings, wr.String())
	}
	res.Warnings = append(res.Warnings, r.Constants.Warnings...)
	if res.Digest, err = r.Constants.Digest(); err != nil {
		res.Err = err
		return res, metrics.ResultError
	}
	data, err := header.Bytes(r, w.opts.Header)
	if err != nil {
		res.Err = err
		return res, metrics.ResultError
	}
	if old, err := os.ReadFile(w.opts.Output); err == nil && bytes.Equal(old, data) {
		return res, metrics.ResultUnchanged
	}
	if err := renameio.WriteFile(w.opts.Output, data, 0o644); err != nil {
		res.Err = errors.Wrap(err, errors.ErrHeaderWrite, "write header: "+err.Error()).SetFile(w.opts.Output)
		return res, metrics.ResultError
	}
	res.Written = true
	return res, metrics.ResultWritten
}

// diffSections renders sel in the INI dialect and compares it section by
// section with the previous load.
func (w *Watcher) diffSections(sel selection.Selection) []string {
	cur, err := config.LoadReader(bytes.NewReader(sel.Document().Bytes()), "")
	if err != nil {
		logger.WithError(err).Debug("selection not comparable")
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	prev := w.prev
	w.prev = cur
	if prev == nil {
		return nil
	}
	return config.ChangedSections(prev, cur)
}

func outcomeFor(err error) string {
	if errors.IsSelection(err) || errors.IsConfig(err) || errors.Is(err, errors.ErrHeaderParse) {
		return metrics.ResultInvalid
	}
	return metrics.ResultError
}

// Run regenerates once, then again after every change to a watched file
// until ctx is cancelled. Directories are watched rather than files so
// editors that replace a file by rename keep being followed.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	dirs := map[string]bool{}
	for p := range w.watched {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("watch: %s: %w", dir, err)
		}
	}
	if m := w.opts.Metrics; m != nil {
		m.WatchedFiles.Set(float64(len(w.watched)))
	}
	logger.WithFields(log.Fields{"input": w.opts.Input, "output": w.opts.Output}).Info("watching selection")

	w.Regenerate()

	trigger := make(chan struct{}, 1)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-fsw.Events:
				if !ok {
					return nil
				}
				if !w.relevant(ev) {
					continue
				}
				logger.WithFields(log.Fields{"file": ev.Name, "op": ev.Op.String()}).Debug("selection changed")
				select {
				case trigger <- struct{}{}:
				default:
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return nil
				}
				logger.WithError(err).Warn("watcher error")
			}
		}
	})

	g.Go(func() error {
		timer := time.NewTimer(w.opts.Debounce)
		timer.Stop()
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-trigger:
				timer.Reset(w.opts.Debounce)
			case <-timer.C:
				w.Regenerate()
			}
		}
	})

	return g.Wait()
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	return w.watched[abs]
}
