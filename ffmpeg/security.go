package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// SplitCommand securely splits a command string into a slice of arguments.
// It prevents shell injection by not using a shell.
func SplitCommand(command string) ([]string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("invalid command syntax: %w", err)
	}
	return args, nil
}

// reservedFlags are set by the runner itself and may not be overridden.
var reservedFlags = map[string]struct{}{
	"-i":  {},
	"-f":  {},
	"-y":  {},
	"-n":  {},
	"-vn": {},
}

// ValidateExtraArgs checks user supplied encoder arguments before they are
// appended to the transcode command line.
func ValidateExtraArgs(args []string) error {
	for _, arg := range args {
		if _, ok := reservedFlags[arg]; ok {
			return fmt.Errorf("argument %s is managed by the transcoder and cannot be overridden", arg)
		}
		if strings.ContainsAny(arg, "|&;`$()<>") {
			return fmt.Errorf("disallowed character found in argument: %s", arg)
		}
		// Anything that is not a flag and looks like a path would become an extra output.
		if !strings.HasPrefix(arg, "-") && strings.ContainsAny(arg, `/\`) {
			return fmt.Errorf("file paths are not allowed in extra arguments: %s", arg)
		}
	}
	return nil
}
