package process

import (
	"fmt"
	"strings"
)

// CommandMatcher is a gomock matcher selecting commands by binary and
// argument vector. It lets tests expect "udevadm trigger" without caring
// about timeouts or names.
type CommandMatcher struct {
	Binary string
	Args   []string
}

// MatchCommand returns a matcher for binary invoked with exactly args.
func MatchCommand(binary string, args ...string) CommandMatcher {
	return CommandMatcher{Binary: binary, Args: args}
}

// Matches implements gomock.Matcher.
func (m CommandMatcher) Matches(x any) bool {
	c, ok := x.(Command)
	if !ok {
		return false
	}
	if c.Binary != m.Binary || len(c.Args) != len(m.Args) {
		return false
	}
	for i := range c.Args {
		if c.Args[i] != m.Args[i] {
			return false
		}
	}
	return true
}

// String implements gomock.Matcher.
func (m CommandMatcher) String() string {
	return fmt.Sprintf("is command %q", strings.TrimSpace(m.Binary+" "+strings.Join(m.Args, " ")))
}
