package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/branchprune/internal/execshell"
)

const (
	commandStartedMessageTemplateConstant   = "Running %s"
	commandCompletedMessageTemplateConstant = "Completed %s in %s"
	commandFailedMessageTemplateConstant    = "%s failed with exit code %d after %s"
	commandAbortedMessageTemplateConstant   = "%s failed: %s"
	standardErrorSuffixTemplateConstant     = ": %s"
	commandArgumentSeparatorConstant        = " "
	unknownFailureMessageConstant           = "unknown error"
	unknownDurationConstant                 = "unknown time"
	durationRoundingUnit                    = time.Millisecond
)

// CommandLabel renders a command the way an operator would type it.
func CommandLabel(command execshell.ShellCommand) string {
	labelParts := make([]string, 0, len(command.Details.Arguments)+1)
	labelParts = append(labelParts, string(command.Name))
	labelParts = append(labelParts, command.Details.Arguments...)
	return strings.Join(labelParts, commandArgumentSeparatorConstant)
}

// CommandTraceLogger reports each command with its elapsed time. Concurrent comparisons issue
// commands from several goroutines, so start times are tracked per label under a mutex.
type CommandTraceLogger struct {
	logger     *zap.Logger
	clock      func() time.Time
	mutex      sync.Mutex
	startTimes map[string][]time.Time
}

// NewCommandTraceLogger constructs a trace logger. A nil clock uses time.Now.
func NewCommandTraceLogger(logger *zap.Logger, clock func() time.Time) *CommandTraceLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &CommandTraceLogger{logger: logger, clock: clock, startTimes: make(map[string][]time.Time)}
}

// CommandStarted implements execshell.CommandEventObserver.
func (traceLogger *CommandTraceLogger) CommandStarted(command execshell.ShellCommand) {
	if traceLogger == nil {
		return
	}
	label := CommandLabel(command)
	traceLogger.mutex.Lock()
	traceLogger.startTimes[label] = append(traceLogger.startTimes[label], traceLogger.clock())
	traceLogger.mutex.Unlock()

	traceLogger.logger.Debug(fmt.Sprintf(commandStartedMessageTemplateConstant, label))
}

// CommandCompleted implements execshell.CommandEventObserver.
func (traceLogger *CommandTraceLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if traceLogger == nil {
		return
	}
	label := CommandLabel(command)
	elapsed := traceLogger.elapsed(label)
	if result.ExitCode == 0 {
		traceLogger.logger.Debug(fmt.Sprintf(commandCompletedMessageTemplateConstant, label, elapsed))
		return
	}

	message := fmt.Sprintf(commandFailedMessageTemplateConstant, label, result.ExitCode, elapsed)
	if trimmedError := strings.TrimSpace(result.StandardError); len(trimmedError) > 0 {
		message += fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedError)
	}
	traceLogger.logger.Warn(message)
}

// CommandExecutionFailed implements execshell.CommandEventObserver.
func (traceLogger *CommandTraceLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if traceLogger == nil {
		return
	}
	label := CommandLabel(command)
	traceLogger.elapsed(label)

	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	traceLogger.logger.Error(fmt.Sprintf(commandAbortedMessageTemplateConstant, label, failureMessage))
}

// elapsed pops the oldest start time recorded for the label.
func (traceLogger *CommandTraceLogger) elapsed(label string) string {
	traceLogger.mutex.Lock()
	defer traceLogger.mutex.Unlock()

	startTimes := traceLogger.startTimes[label]
	if len(startTimes) == 0 {
		return unknownDurationConstant
	}
	startedAt := startTimes[0]
	if len(startTimes) == 1 {
		delete(traceLogger.startTimes, label)
	} else {
		traceLogger.startTimes[label] = startTimes[1:]
	}
	return traceLogger.clock().Sub(startedAt).Round(durationRoundingUnit).String()
}
