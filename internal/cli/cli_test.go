package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	WorkflowID   string         `json:"workflow_id"`
	WorkflowType string         `json:"workflow_type"`
	Status       string         `json:"status"`
	Result       map[string]any `json:"result"`
	Error        string         `json:"error"`
}

func quietEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("MAX_INPUT_BYTES", "")
	t.Setenv("MAX_NESTING_DEPTH", "")
}

func execute(t *testing.T, build func(Streams) *cobra.Command, args ...string) (int, envelope, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := build(Streams{Out: &stdout, Err: &stderr})
	cmd.SetArgs(args)

	code := Execute(context.Background(), cmd, &stderr)

	var env envelope
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &env), "stdout: %q", stdout.String())
	require.Equal(t, 1, strings.Count(strings.TrimSpace(stdout.String()), "\n")+1, "expected exactly one JSON document")
	return code, env, stderr.String()
}

func TestDataCleanerCommand(t *testing.T) {
	quietEnv(t)

	t.Run("cleans object", func(t *testing.T) {
		code, env, _ := execute(t, NewDataCleanerCmd, `{"Email": "JOHN@EXAMPLE.COM", "Name": "  Jane  ", "phone": "1"}`)

		assert.Equal(t, 0, code)
		assert.Equal(t, "data_clean", env.WorkflowType)
		assert.Equal(t, "completed", env.Status)
		assert.NotEmpty(t, env.WorkflowID)
		assert.Empty(t, env.Error)

		cleaned, ok := env.Result["cleaned_data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "john@example.com", cleaned["Email"])
		assert.Equal(t, "Jane", cleaned["Name"])
		assert.Equal(t, []any{"Invalid phone format: phone"}, env.Result["validation_errors"])
	})

	t.Run("missing input", func(t *testing.T) {
		code, env, _ := execute(t, NewDataCleanerCmd)

		assert.Equal(t, ExitCodeInputError, code)
		assert.Equal(t, "failed", env.Status)
		assert.Equal(t, "No input provided", env.Error)
		assert.Nil(t, env.Result)
	})

	t.Run("invalid json", func(t *testing.T) {
		code, env, _ := execute(t, NewDataCleanerCmd, `{"a":`)

		assert.Equal(t, ExitCodeInputError, code)
		assert.Equal(t, "failed", env.Status)
		assert.Equal(t, "Invalid JSON input", env.Error)
	})

	t.Run("json that is not an object", func(t *testing.T) {
		code, env, _ := execute(t, NewDataCleanerCmd, `[1, 2]`)

		assert.Equal(t, 0, code)
		assert.Equal(t, "failed", env.Status)
		assert.True(t, strings.HasPrefix(env.Error, "invalid input"))
	})

	t.Run("pretty output", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		cmd := NewDataCleanerCmd(Streams{Out: &stdout, Err: &stderr})
		cmd.SetArgs([]string{"--pretty", `{"a": 1}`})

		require.Equal(t, 0, Execute(context.Background(), cmd, &stderr))
		assert.True(t, strings.HasPrefix(stdout.String(), "{\n  \"workflow_id\""))
	})
}

func TestDataCleanerLimits(t *testing.T) {
	quietEnv(t)

	t.Run("input too large", func(t *testing.T) {
		t.Setenv("MAX_INPUT_BYTES", "10")
		code, env, _ := execute(t, NewDataCleanerCmd, `{"name": "much too long"}`)

		assert.Equal(t, ExitCodeInputError, code)
		assert.True(t, strings.HasPrefix(env.Error, "Input too large"))
	})

	t.Run("nesting too deep", func(t *testing.T) {
		t.Setenv("MAX_NESTING_DEPTH", "1")
		code, env, _ := execute(t, NewDataCleanerCmd, `{"a": {"b": 1}}`)

		assert.Equal(t, 0, code)
		assert.Equal(t, "failed", env.Status)
		assert.Contains(t, env.Error, "maximum nesting depth exceeded")
	})

	t.Run("config from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("limits:\n  max_input_bytes: 5\n"), 0o600))

		code, env, _ := execute(t, NewDataCleanerCmd, "--config", path, `{"a": 1}`)
		assert.Equal(t, ExitCodeInputError, code)
		assert.True(t, strings.HasPrefix(env.Error, "Input too large"))
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Setenv("MAX_INPUT_BYTES", "lots")
		code, env, _ := execute(t, NewDataCleanerCmd, `{"a": 1}`)

		assert.Equal(t, ExitCodeInputError, code)
		assert.Equal(t, "failed", env.Status)
		assert.Contains(t, env.Error, "MAX_INPUT_BYTES must be a valid integer")
	})
}

func TestEmailParserCommand(t *testing.T) {
	quietEnv(t)
	raw := "From: Jane <jane@example.com>\nSubject: Hello\n\nBody text"

	t.Run("from argument", func(t *testing.T) {
		code, env, _ := execute(t, NewEmailParserCmd, raw)

		assert.Equal(t, 0, code)
		assert.Equal(t, "email_parse", env.WorkflowType)
		assert.Equal(t, "completed", env.Status)
		assert.Equal(t, "jane@example.com", env.Result["sender"])
		assert.Equal(t, "Hello", env.Result["subject"])
		assert.Equal(t, "Body text", env.Result["body"])
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "message.eml")
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

		code, env, _ := execute(t, NewEmailParserCmd, "--file", path)
		assert.Equal(t, 0, code)
		assert.Equal(t, "Hello", env.Result["subject"])
	})

	t.Run("unreadable file", func(t *testing.T) {
		code, env, _ := execute(t, NewEmailParserCmd, "--file", filepath.Join(t.TempDir(), "absent.eml"))

		assert.Equal(t, ExitCodeInputError, code)
		assert.Equal(t, "failed", env.Status)
		assert.True(t, strings.HasPrefix(env.Error, "failed to read input"))
	})

	t.Run("argument and file together", func(t *testing.T) {
		code, env, _ := execute(t, NewEmailParserCmd, "--file", "x.eml", raw)

		assert.Equal(t, ExitCodeInputError, code)
		assert.True(t, strings.HasPrefix(env.Error, "invalid input"))
	})

	t.Run("missing input", func(t *testing.T) {
		code, env, _ := execute(t, NewEmailParserCmd)

		assert.Equal(t, ExitCodeInputError, code)
		assert.Equal(t, "No input provided", env.Error)
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		code, env, _ := execute(t, NewEmailParserCmd, "Subject: \xff\n\nbody")

		assert.Equal(t, ExitCodeInputError, code)
		assert.Equal(t, "failed", env.Status)
		assert.True(t, strings.HasPrefix(env.Error, "Failed to parse email"))
	})
}

func TestExecuteReportsUsageErrors(t *testing.T) {
	quietEnv(t)
	var stdout, stderr bytes.Buffer
	cmd := NewDataCleanerCmd(Streams{Out: &stdout, Err: &stderr})
	cmd.SetArgs([]string{`{"a": 1}`, `{"b": 2}`})

	code := Execute(context.Background(), cmd, &stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "Error:")
}
