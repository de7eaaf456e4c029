package rinex

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultCrx2rnxTool is the executable name of the Hatanaka decompression tool.
// see http://terras.gsi.go.jp/ja/crx2rnx.html
const DefaultCrx2rnxTool = "CRX2RNX"

// errors
var (
	// ErrConverterNotFound is returned if the CRX2RNX executable does not exist.
	ErrConverterNotFound = errors.New("crx2rnx: executable not found")

	// ErrConverterNotExecutable is returned if the CRX2RNX file lacks execute permission.
	ErrConverterNotExecutable = errors.New("crx2rnx: file is not executable")

	// ErrNoOutput is returned if the tool finished but the expected RINEX file does not exist.
	ErrNoOutput = errors.New("crx2rnx: conversion did not produce expected output")
)

// Crx2rnx runs the external CRX2RNX tool to decompress Hatanaka compressed obs files.
type Crx2rnx struct {
	// Path is the absolute path of the executable.
	Path string

	// Args are passed to the tool after the input file, e.g. "-f" to overwrite existing files.
	Args []string
}

// NewCrx2rnx returns a converter for the tool at path, after checking that it exists and is executable.
func NewCrx2rnx(path string) (*Crx2rnx, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "crx2rnx: %s", path)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(ErrConverterNotFound, abs)
		}
		return nil, errors.Wrapf(err, "crx2rnx: %s", abs)
	}
	if fi.IsDir() || fi.Mode().Perm()&0o111 == 0 {
		return nil, errors.Wrap(ErrConverterNotExecutable, abs)
	}
	return &Crx2rnx{Path: abs}, nil
}

// Convert decompresses the Hatanaka compressed crxFilename and returns the path of the RINEX file,
// which is written as a sibling of crxFilename. The input file is not removed.
func (c *Crx2rnx) Convert(ctx context.Context, crxFilename string) (string, error) {
	crxFilePath, err := filepath.Abs(crxFilename)
	if err != nil {
		return "", err
	}
	rnxFilePath, err := RnxFilename(crxFilePath)
	if err != nil {
		return "", errors.Wrap(err, "crx2rnx")
	}

	args := append([]string{crxFilePath}, c.Args...)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// Launch as new process group so that signals (ex: SIGINT) are not sent also the the child process.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // linux
	}

	err = cmd.Run()
	if err != nil {
		rc := -1
		if cmd.ProcessState != nil {
			rc = cmd.ProcessState.ExitCode()
		}
		if rc == 2 { // Warning
			log.Warnf("crx2rnx: %s: %s", filepath.Base(crxFilePath), bytes.TrimSpace(stderr.Bytes()))
		} else { // Error
			if _, err := os.Stat(rnxFilePath); !errors.Is(err, os.ErrNotExist) {
				os.Remove(rnxFilePath)
			}
			return "", errors.Errorf("crx2rnx: rc:%d: %v: %s", rc, err, bytes.TrimSpace(stderr.Bytes()))
		}
	}

	if _, err := os.Stat(rnxFilePath); errors.Is(err, os.ErrNotExist) {
		return "", errors.Wrap(ErrNoOutput, rnxFilePath)
	}
	return rnxFilePath, nil
}
