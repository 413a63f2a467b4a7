package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

const (
	gitHubPromptDisabledAssignmentConstant = "GH_PROMPT_DISABLED=1"
	gitTerminalPromptAssignmentConstant    = "GIT_TERMINAL_PROMPT=0"
	processWaitDelayConstant               = 2 * time.Second
)

// ProcessRunner launches commands as child processes with captured output. Prompts from gh and the git
// it spawns are disabled because the terminal may belong to the branch browser.
type ProcessRunner struct {
	baseEnvironment func() []string
}

// NewProcessRunner constructs a runner that inherits the current process environment.
func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{baseEnvironment: os.Environ}
}

// Run starts the command and waits for it. A non-zero exit code is reported through the result, not the error.
func (runner *ProcessRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	process := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = runner.environment(command.Details.EnvironmentVariables)
	process.WaitDelay = processWaitDelayConstant
	if len(command.Details.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	var standardOutput, standardError bytes.Buffer
	process.Stdout = &standardOutput
	process.Stderr = &standardError

	result := ExecutionResult{}
	if runError := process.Run(); runError != nil {
		var exitError *exec.ExitError
		if !errors.As(runError, &exitError) {
			return ExecutionResult{}, runError
		}
		result.ExitCode = exitError.ExitCode()
	}
	result.StandardOutput = standardOutput.String()
	result.StandardError = standardError.String()
	return result, nil
}

func (runner *ProcessRunner) environment(overrides map[string]string) []string {
	baseEnvironment := os.Environ
	if runner != nil && runner.baseEnvironment != nil {
		baseEnvironment = runner.baseEnvironment
	}

	environment := append(baseEnvironment(), gitHubPromptDisabledAssignmentConstant, gitTerminalPromptAssignmentConstant)
	for variableName, variableValue := range overrides {
		environment = append(environment, variableName+"="+variableValue)
	}
	return environment
}
