package execshell

// CommandEventObserver is notified around every git or gh invocation made by a ShellExecutor.
type CommandEventObserver interface {
	// CommandStarted fires before the process is launched.
	CommandStarted(command ShellCommand)
	// CommandCompleted fires once the process exited, whatever its exit code.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed fires when the process could not be launched or was interrupted.
	CommandExecutionFailed(command ShellCommand, failure error)
}

type discardingObserver struct{}

func (discardingObserver) CommandStarted(ShellCommand) {}

func (discardingObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (discardingObserver) CommandExecutionFailed(ShellCommand, error) {}
