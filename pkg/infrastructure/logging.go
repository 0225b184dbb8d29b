// Package infrastructure provides reusable infrastructure components for Go applications.
package infrastructure

import (
	"strings"

	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// FxLoggerAdapter routes Fx framework events through a zap logger so
// dependency-injection noise lands in the same place as application logs.
type FxLoggerAdapter struct {
	logger *zap.SugaredLogger
}

// NewFxLoggerAdapter creates an fxevent.Logger backed by the given zap logger.
func NewFxLoggerAdapter(logger *zap.Logger) fxevent.Logger {
	return &FxLoggerAdapter{logger: logger.Sugar()}
}

// LogEvent implements fxevent.Logger. Routine wiring events log at
// debug; failures log at error.
func (a *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		a.logger.Debugf("HOOK OnStart executing: %s, function: %s", e.CallerName, e.FunctionName)
	case *fxevent.OnStartExecuted:
		a.hookExecuted("OnStart", e.CallerName, e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuting:
		a.logger.Debugf("HOOK OnStop executing: %s, function: %s", e.CallerName, e.FunctionName)
	case *fxevent.OnStopExecuted:
		a.hookExecuted("OnStop", e.CallerName, e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		a.outcome("SUPPLY "+e.TypeName, e.Err)
	case *fxevent.Provided:
		a.outcome("PROVIDE "+strings.Join(e.OutputTypeNames, ", "), e.Err)
	case *fxevent.Invoking:
		a.logger.Debugf("INVOKE: %s", e.FunctionName)
	case *fxevent.Invoked:
		a.outcome("INVOKE "+e.FunctionName, e.Err)
	case *fxevent.Stopping:
		a.logger.Infof("STOPPING: %s", e.Signal)
	case *fxevent.Stopped:
		a.outcome("STOPPED", e.Err)
	case *fxevent.RollingBack:
		a.logger.Errorf("ROLLING BACK: %v", e.StartErr)
	case *fxevent.RolledBack:
		a.outcome("ROLLED BACK", e.Err)
	case *fxevent.Started:
		if e.Err != nil {
			a.logger.Errorf("STARTED with error: %v", e.Err)
		} else {
			a.logger.Info("STARTED")
		}
	case *fxevent.LoggerInitialized:
		a.outcome("LOGGER INITIALIZED "+e.ConstructorName, e.Err)
	default:
		a.logger.Debugf("UNKNOWN Fx event: %T", event)
	}
}

func (a *FxLoggerAdapter) hookExecuted(hook, caller, function, runtime string, err error) {
	if err != nil {
		a.logger.Errorf("HOOK %s failed: %s, function: %s, error: %v", hook, caller, function, err)
		return
	}
	a.logger.Debugf("HOOK %s executed: %s, function: %s, runtime: %s", hook, caller, function, runtime)
}

func (a *FxLoggerAdapter) outcome(action string, err error) {
	if err != nil {
		a.logger.Errorf("%s failed: %v", action, err)
		return
	}
	a.logger.Debugf("%s", action)
}
