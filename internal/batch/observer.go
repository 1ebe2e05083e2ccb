package batch

import "disk-janitor/internal/wipe"

// Observer receives the progress of a run. All calls happen on the
// goroutine executing the run.
type Observer interface {
	TargetStarted(t Target)
	TargetDone(t Target, res wipe.Result, err error)
	Progress(percent float64)
}

// Funcs adapts plain functions to Observer; nil fields are ignored
type Funcs struct {
	OnTargetStart func(t Target)
	OnTargetDone  func(t Target, res wipe.Result, err error)
	OnProgress    func(percent float64)
}

func (f Funcs) TargetStarted(t Target) {
	if f.OnTargetStart != nil {
		f.OnTargetStart(t)
	}
}

func (f Funcs) TargetDone(t Target, res wipe.Result, err error) {
	if f.OnTargetDone != nil {
		f.OnTargetDone(t, res, err)
	}
}

func (f Funcs) Progress(percent float64) {
	if f.OnProgress != nil {
		f.OnProgress(percent)
	}
}

// Observers fans every call out to each member in order
type Observers []Observer

func (o Observers) TargetStarted(t Target) {
	for _, obs := range o {
		obs.TargetStarted(t)
	}
}

func (o Observers) TargetDone(t Target, res wipe.Result, err error) {
	for _, obs := range o {
		obs.TargetDone(t, res, err)
	}
}

func (o Observers) Progress(percent float64) {
	for _, obs := range o {
		obs.Progress(percent)
	}
}
