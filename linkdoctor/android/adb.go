package android

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	adbPath = "adb"

	defaultCommandTimeout = 15 * time.Second
)

// Runner is the command transport consumed by components in this package.
type Runner interface {
	RunCommand(ctx context.Context, serial string, args ...string) (string, error)
}

// ADBRunner executes adb commands against a device. A zero timeout falls
// back to defaultCommandTimeout.
type ADBRunner struct {
	timeout time.Duration
}

func NewADBRunner(timeout time.Duration) *ADBRunner {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return &ADBRunner{timeout: timeout}
}

func deviceArgs(serial string, args ...string) []string {
	var cmdArgs []string
	if len(serial) > 0 {
		cmdArgs = append(cmdArgs, "-s", serial)
	}
	return append(cmdArgs, args...)
}

// RunCommand runs one adb command to completion and returns its stdout with
// line endings normalized. A non-zero exit comes back as an error carrying
// the stderr text, since adb reports device problems there.
func (r *ADBRunner) RunCommand(ctx context.Context, serial string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmdArgs := deviceArgs(serial, args...)

	log.Debug().Str("cmd", fmt.Sprintf("[RunCommand] run cmd: %s %s", adbPath, strings.Join(cmdArgs, " "))).Msg("")

	cmd := exec.CommandContext(ctx, adbPath, cmdArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		log.Error().Err(err).Str("stderr", detail).Msg("[RunCommand] run cmd failed")
		if detail != "" {
			return "", fmt.Errorf("adb %s: %w: %s", strings.Join(args, " "), err, detail)
		}
		return "", fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}

	return normalizeLineEndings(stdout.String()), nil
}

// StreamCommand starts an adb command and returns a channel of its stdout
// lines. The channel closes when the command exits or ctx is cancelled.
// Meant for bounded commands like `logcat -d`; it is not a live tail.
func (r *ADBRunner) StreamCommand(ctx context.Context, serial string, args ...string) (<-chan string, error) {
	cmdArgs := deviceArgs(serial, args...)

	log.Debug().Str("cmd", fmt.Sprintf("[StreamCommand] run cmd: %s %s", adbPath, strings.Join(cmdArgs, " "))).Msg("")

	cmd := exec.CommandContext(ctx, adbPath, cmdArgs...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimRight(scanner.Text(), "\r"):
			case <-ctx.Done():
				_ = cmd.Process.Kill()
				return
			}
		}
		if err := cmd.Wait(); err != nil {
			log.Debug().Err(err).Msg("[StreamCommand] command exited")
		}
	}()

	return lines, nil
}

// normalizeLineEndings strips the \r that adb shell inserts before \n on
// some host/device combinations.
func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
