package memory

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ErrAborted is returned when the operator declines a confirmation prompt.
var ErrAborted = errors.New("aborted by operator")

// ConfirmFunc asks the operator a yes/no question. Pipelines take it as a
// field so tests can inject an answer.
type ConfirmFunc func(prompt string) bool

// TerminalConfirm prompts on stderr and reads one line from stdin. Anything
// other than "y" or "yes" declines.
func TerminalConfirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
