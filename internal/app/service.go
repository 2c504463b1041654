package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	kservice "github.com/kardianos/service"

	"procterm/internal/execx"
	"procterm/internal/logging"
)

// supervisedProgram runs the configured command for the OS service manager
// and stops it through the termination controller.
type supervisedProgram struct {
	app     *App
	command string
	args    []string
	workdir string
	logPath string
	grace   time.Duration
	group   bool
	log     *logging.Logger

	mu      sync.Mutex
	child   *execx.Child
	logFile *os.File
}

func (p *supervisedProgram) Start(kservice.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.child != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(p.logPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	child, err := execx.NewRunner().Start(p.command, p.args, execx.Options{
		Dir:    p.workdir,
		Group:  p.group,
		Stdout: f,
		Stderr: f,
	})
	if err != nil {
		_ = f.Close()
		return err
	}
	p.child = child
	p.logFile = f
	pid, _ := child.PID()
	p.log.Infof("service command started pid=%d", pid)

	go func() {
		st, err := child.Wait(context.Background())
		if err != nil {
			p.log.Errorf("service command wait failed: %v", err)
			return
		}
		p.log.Infof("service command finished: %s", st)
	}()
	return nil
}

func (p *supervisedProgram) Stop(kservice.Service) error {
	p.mu.Lock()
	child, f := p.child, p.logFile
	p.child, p.logFile = nil, nil
	p.mu.Unlock()
	if child == nil {
		return nil
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	outcome, err := p.app.trackChild(child, p.group).RequestExitWithTimeout(context.Background(), p.grace)
	if err != nil {
		return err
	}
	if outcome.Killed() {
		p.log.Warnf("service command killed after %s", p.grace)
	} else {
		p.log.Okf("service command stopped: %s", outcome)
	}
	return nil
}

func (a *App) newServiceProgram() (*supervisedProgram, error) {
	svcCfg := a.cfg.Service
	if strings.TrimSpace(svcCfg.Command) == "" {
		return nil, errors.New("service.command is empty in config")
	}
	grace, err := a.cfg.Termination.GraceDuration()
	if err != nil {
		return nil, err
	}
	return &supervisedProgram{
		app:     a,
		command: svcCfg.Command,
		args:    svcCfg.Args,
		workdir: svcCfg.Workdir,
		logPath: filepath.Join(a.cfg.DataHome, "logs", svcCfg.Name+".out.log"),
		grace:   grace,
		group:   a.cfg.Termination.Group,
		log:     a.serviceLog,
	}, nil
}

func (a *App) serviceAction(action string) error {
	prg, err := a.newServiceProgram()
	if err != nil {
		return err
	}
	svcCfg := a.cfg.Service
	svc, err := kservice.New(prg, &kservice.Config{
		Name:             svcCfg.Name,
		DisplayName:      svcCfg.DisplayName,
		Description:      svcCfg.Description,
		Arguments:        []string{"service", "run"},
		WorkingDirectory: svcCfg.Workdir,
	})
	if err != nil {
		return err
	}

	switch action {
	case "install":
		if err := svc.Install(); err != nil {
			return err
		}
	case "uninstall":
		if err := svc.Uninstall(); err != nil {
			return err
		}
	case "start":
		if err := svc.Start(); err != nil {
			return err
		}
	case "stop":
		if err := svc.Stop(); err != nil {
			return err
		}
	case "status":
		status, err := svc.Status()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "service=%s status=%s\n", svcCfg.Name, serviceStatusName(status))
		return nil
	case "run":
		return svc.Run()
	default:
		return fmt.Errorf("unsupported service action: %s", action)
	}
	a.serviceLog.Infof("service action %s completed for %s", action, svcCfg.Name)
	return nil
}

func serviceStatusName(s kservice.Status) string {
	switch s {
	case kservice.StatusRunning:
		return "running"
	case kservice.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var _ kservice.Interface = (*supervisedProgram)(nil)
