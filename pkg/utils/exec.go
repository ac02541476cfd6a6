package utils

import (
	"errors"
	"io"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"
)

type ExecItem struct {
	Pid    int
	Args   []string
	Stdout io.ReadCloser
	Cmd    *exec.Cmd
}

// DoExecAsync start a shell command in its own process group, stderr merged
// into stdout. Caller consumes Stdout and waits on Cmd.
func DoExecAsync(shell, dir string, env []string) (*ExecItem, error) {
	cmd := exec.Command("/bin/bash", "-c", shell)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout, _ := cmd.StdoutPipe()
	cmd.Stderr = cmd.Stdout
	if env != nil {
		cmd.Env = env
	}
	if dir != "" {
		cmd.Dir = dir
	}
	if err := cmd.Start(); err != nil {
		logrus.Errorf("cmd.Start err: %s", err.Error())
		return nil, errors.New("trainer start error")
	}
	return &ExecItem{
		Pid:    cmd.Process.Pid,
		Args:   cmd.Args,
		Stdout: stdout,
		Cmd:    cmd,
	}, nil
}
