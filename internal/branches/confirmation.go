package branches

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	confirmationTitleTemplateConstant      = "Delete %d branch(es)?"
	confirmationBranchLineTemplateConstant = "  • %s"
	confirmationOverflowTemplateConstant   = "  ... and %d more"
	confirmationPromptSuffixConstant       = "Proceed? [y/N]: "
	confirmationVisibleBranchLimit         = 10
	confirmationLineSeparatorConstant      = "\n"
)

// Confirmation is the operator's answer to a deletion prompt.
type Confirmation int

// Confirmation outcomes. Only ConfirmationAccepted allows deletion to proceed.
const (
	ConfirmationDismissed Confirmation = iota
	ConfirmationDeclined
	ConfirmationAccepted
)

// ConfirmationRequest describes the branches awaiting approval.
type ConfirmationRequest struct {
	BranchNames []string
}

// Title summarizes the request.
func (request ConfirmationRequest) Title() string {
	return fmt.Sprintf(confirmationTitleTemplateConstant, len(request.BranchNames))
}

// Lines lists up to ten names followed by an overflow line when more remain.
func (request ConfirmationRequest) Lines() []string {
	visibleCount := min(len(request.BranchNames), confirmationVisibleBranchLimit)
	lines := make([]string, 0, visibleCount+1)
	for _, branchName := range request.BranchNames[:visibleCount] {
		lines = append(lines, fmt.Sprintf(confirmationBranchLineTemplateConstant, branchName))
	}
	if hiddenCount := len(request.BranchNames) - visibleCount; hiddenCount > 0 {
		lines = append(lines, fmt.Sprintf(confirmationOverflowTemplateConstant, hiddenCount))
	}
	return lines
}

// Text renders the title and lines as a block.
func (request ConfirmationRequest) Text() string {
	return request.Title() + confirmationLineSeparatorConstant + strings.Join(request.Lines(), confirmationLineSeparatorConstant) + confirmationLineSeparatorConstant
}

// ConfirmationPrompter asks the operator to approve a deletion.
type ConfirmationPrompter interface {
	Confirm(request ConfirmationRequest) (Confirmation, error)
}

// IOConfirmationPrompter reads confirmation responses from an io.Reader.
type IOConfirmationPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOConfirmationPrompter constructs a prompter from the provided reader and writer.
func NewIOConfirmationPrompter(input io.Reader, output io.Writer) *IOConfirmationPrompter {
	return &IOConfirmationPrompter{reader: bufio.NewReader(input), writer: output}
}

// Confirm writes the request and interprets y/yes as accepted. Any other answer declines;
// input that ends without an answer is treated as dismissed.
func (prompter *IOConfirmationPrompter) Confirm(request ConfirmationRequest) (Confirmation, error) {
	if prompter.writer != nil {
		if _, writeError := io.WriteString(prompter.writer, request.Text()+confirmationPromptSuffixConstant); writeError != nil {
			return ConfirmationDismissed, writeError
		}
	}

	response, readError := prompter.reader.ReadString('\n')
	if readError != nil && !errors.Is(readError, io.EOF) {
		return ConfirmationDismissed, readError
	}

	trimmedResponse := strings.TrimSpace(strings.ToLower(response))
	switch {
	case trimmedResponse == "y" || trimmedResponse == "yes":
		return ConfirmationAccepted, nil
	case len(trimmedResponse) == 0 && errors.Is(readError, io.EOF):
		return ConfirmationDismissed, nil
	default:
		return ConfirmationDeclined, nil
	}
}
