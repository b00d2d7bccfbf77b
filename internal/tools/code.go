package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const defaultCommandTimeout = 120 * time.Second

// RegisterCodeTools adds file creation and command execution. Every
// failure, including timeouts and non-zero exits, is rendered into the
// textual result; a misbehaving command never crashes the worker loop.
func RegisterCodeTools(r *Registry) {
	r.MustRegister(&Tool{
		Name:        "create_file",
		Description: "Write content to a file, creating parent directories as needed.",
		Category:    CategoryCode,
		Schema: ToolSchema{
			Required: []string{"filename", "content"},
			Properties: map[string]Property{
				"filename": {Type: "string", Description: "Path of the file to create"},
				"content":  {Type: "string", Description: "File content"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			filename := StringArg(args, "filename")
			if filename == "" {
				return "No filename given.", nil
			}
			if dir := filepath.Dir(filename); dir != "" && dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Sprintf("Failed to create directory for %s: %v", filename, err), nil
				}
			}
			content := StringArg(args, "content")
			if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
				return fmt.Sprintf("Failed to write %s: %v", filename, err), nil
			}
			return fmt.Sprintf("Wrote %d bytes to %s.", len(content), filename), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "run_command",
		Description: "Execute a shell command and return its exit code, stdout, and stderr.",
		Category:    CategoryCode,
		Schema: ToolSchema{
			Required: []string{"command"},
			Properties: map[string]Property{
				"command":     {Type: "string", Description: "The command to execute"},
				"working_dir": {Type: "string", Description: "Working directory for the command"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			command := StringArg(args, "command")
			if command == "" {
				return "No command given.", nil
			}
			return runCommand(ctx, command, StringArg(args, "working_dir")), nil
		},
	})
}

func runCommand(ctx context.Context, command, workingDir string) string {
	execCtx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(execCtx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(execCtx, "sh", "-c", command)
	}
	if workingDir != "" {
		cmd.Dir = workingDir
	}
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	exitCode := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		} else {
			exitCode = -1
		}
	}

	var b strings.Builder
	if execCtx.Err() == context.DeadlineExceeded {
		fmt.Fprintf(&b, "Command timed out after %s.\n", defaultCommandTimeout)
	}
	fmt.Fprintf(&b, "exit code: %d", exitCode)
	if err != nil && exitCode == -1 {
		fmt.Fprintf(&b, " (%v)", err)
	}
	if s := stdout.String(); s != "" {
		b.WriteString("\n--- stdout ---\n")
		b.WriteString(strings.TrimRight(s, "\n"))
	}
	if s := stderr.String(); s != "" {
		b.WriteString("\n--- stderr ---\n")
		b.WriteString(strings.TrimRight(s, "\n"))
	}
	return b.String()
}
