package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCommand(t *testing.T) {
	cmd := `-q:a 0 -metadata "title=Song Title" -ar 44100`
	expected := []string{"-q:a", "0", "-metadata", "title=Song Title", "-ar", "44100"}

	args, err := SplitCommand(cmd)
	assert.NoError(t, err)
	assert.Equal(t, expected, args)
}

func TestSplitCommand_Unterminated(t *testing.T) {
	_, err := SplitCommand(`-metadata "title=oops`)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid command syntax")
}

func TestValidateExtraArgs(t *testing.T) {
	t.Run("Valid encoder options", func(t *testing.T) {
		args, _ := SplitCommand(`-q:a 2 -ar 44100 -ac 2`)
		assert.NoError(t, ValidateExtraArgs(args))
	})

	t.Run("Empty is fine", func(t *testing.T) {
		assert.NoError(t, ValidateExtraArgs(nil))
	})

	t.Run("Extra input rejected", func(t *testing.T) {
		args, _ := SplitCommand(`-i other.wav -q:a 2`)
		err := ValidateExtraArgs(args)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "argument -i is managed by the transcoder")
	})

	t.Run("Disallowed character (semicolon)", func(t *testing.T) {
		args, _ := SplitCommand(`-q:a 2; ls`)
		err := ValidateExtraArgs(args)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "disallowed character found in argument: 2;")
	})

	t.Run("Extra output path rejected", func(t *testing.T) {
		args, _ := SplitCommand(`-q:a 2 /tmp/copy.mp3`)
		err := ValidateExtraArgs(args)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "file paths are not allowed")
	})
}
