// Package config loads the estimation parameter file and keeps it
// fresh: the YAML file is re-read whenever it changes on disk, so
// parameter tuning does not require a restart.
package config

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"shipment-forecast-service/internal/forecast"
)

// Loader reads the parameter YAML file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *forecast.Params
	onChange []func(*forecast.Params)
	watcher  *fsnotify.Watcher
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	params, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = params
	return l, nil
}

// Params returns the current (latest) parameter set.
func (l *Loader) Params() *forecast.Params {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the parameters reload.
func (l *Loader) OnChange(fn func(*forecast.Params)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the parameters
// on file changes. Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}
	l.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					params, err := l.load()
					if err != nil {
						// Keep serving the old parameters.
						log.Printf("config: reload failed path=%s err=%v", l.path, err)
						continue
					}
					l.mu.Lock()
					l.current = params
					callbacks := make([]func(*forecast.Params), len(l.onChange))
					copy(callbacks, l.onChange)
					l.mu.Unlock()
					for _, fn := range callbacks {
						fn(params)
					}
					log.Printf("config: parameters reloaded path=%s", l.path)
				}
			case <-w.Errors:
				// Ignore watcher errors.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the parameter file.
func (l *Loader) Reload() (*forecast.Params, error) {
	params, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = params
	callbacks := make([]func(*forecast.Params), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(params)
	}
	return params, nil
}

func (l *Loader) load() (*forecast.Params, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read params %s: %w", l.path, err)
	}
	var params forecast.Params
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("parse params %s: %w", l.path, err)
	}
	applyDefaults(&params)
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("validate params %s: %w", l.path, err)
	}
	return &params, nil
}

func applyDefaults(p *forecast.Params) {
	if p.DT.Confidence == 0 {
		p.DT.Confidence = 0.95
	}
	if p.TFST.Alpha.AlphaType == "" {
		p.TFST.Alpha.AlphaType = forecast.AlphaTypeConst
	}
	if p.TFST.Alpha.ConstAlphaValue == 0 {
		p.TFST.Alpha.ConstAlphaValue = 0.5
	}
	if p.TFST.PT.Confidence == 0 {
		p.TFST.PT.Confidence = 0.95
	}
	if p.TFST.PT.MaxPaths == 0 {
		p.TFST.PT.MaxPaths = 10
	}
	if p.TFST.PT.WMI.StepDistanceKm == 0 {
		p.TFST.PT.WMI.StepDistanceKm = 100
	}
	if p.TFST.PT.WMI.MaxPoints == 0 {
		p.TFST.PT.WMI.MaxPoints = 10
	}
	if p.TFST.TT.Confidence == 0 {
		p.TFST.TT.Confidence = 0.95
	}
	if p.TFST.Tolerance == 0 {
		p.TFST.Tolerance = 0.01
	}
	if p.TimeDeviation.DTConfidence == 0 {
		p.TimeDeviation.DTConfidence = 0.95
	}
	if p.TimeDeviation.STConfidence == 0 {
		p.TimeDeviation.STConfidence = 0.95
	}
}
