package cors

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"

	"github.com/cavaliercoder/grab"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultCurl is the name of the curl executable, looked up in PATH.
const DefaultCurl = "curl"

// filename returns the last path element of rawURL, which is used as local filename.
func filename(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(err, "parse url")
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", errors.Errorf("no filename in url %s", rawURL)
	}
	return name, nil
}

// Curl downloads files by running the curl command line tool.
type Curl struct {
	// Path of the curl executable, defaults to DefaultCurl.
	Path string

	// Silent suppresses curls' progress meter.
	Silent bool
}

// Fetch downloads rawURL into dir, keeping the remote filename, and returns the local path.
// The directory is created if necessary. curl runs in dir.
func (c Curl) Fetch(ctx context.Context, rawURL, dir string) (string, error) {
	name, err := filename(rawURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create download dir")
	}

	tool := c.Path
	if tool == "" {
		tool = DefaultCurl
	}
	args := []string{"-f", "-L"}
	if c.Silent {
		args = append(args, "-s", "-S")
	}
	args = append(args, "-o", name, rawURL)

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if !c.Silent {
		cmd.Stdout = os.Stdout
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	}

	if err := cmd.Run(); err != nil {
		dest := filepath.Join(dir, name)
		if _, serr := os.Stat(dest); serr == nil {
			os.Remove(dest)
		}
		rc := -1
		if cmd.ProcessState != nil {
			rc = cmd.ProcessState.ExitCode()
		}
		return "", errors.Errorf("curl: rc:%d: %v: %s", rc, err, bytes.TrimSpace(stderr.Bytes()))
	}
	log.WithField("url", rawURL).Debugln("download complete")
	return filepath.Join(dir, name), nil
}

// HTTP downloads files with the native HTTP client of package grab.
type HTTP struct {
	Client *grab.Client
}

// NewHTTP returns an HTTP fetcher with a default grab client.
func NewHTTP() *HTTP {
	client := grab.NewClient()
	client.UserAgent = "rnxfetch"
	return &HTTP{Client: client}
}

// Fetch downloads rawURL into dir, keeping the remote filename, and returns the local path.
func (h *HTTP) Fetch(ctx context.Context, rawURL, dir string) (string, error) {
	name, err := filename(rawURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create download dir")
	}
	dest := filepath.Join(dir, name)

	req, err := grab.NewRequest(dest, rawURL)
	if err != nil {
		return "", errors.Wrap(err, "grab")
	}
	req.NoResume = true
	req = req.WithContext(ctx)

	client := h.Client
	if client == nil {
		client = grab.NewClient()
	}
	resp := client.Do(req)
	if err := resp.Err(); err != nil {
		if _, serr := os.Stat(dest); serr == nil {
			os.Remove(dest)
		}
		if sce, ok := errors.Cause(err).(grab.StatusCodeError); ok {
			return "", errors.Errorf("grab: bad status %d fetching %s", int(sce), rawURL)
		}
		return "", errors.Wrapf(err, "grab %s", rawURL)
	}
	log.WithFields(log.Fields{"url": rawURL, "bytes": resp.BytesComplete()}).Debugln("download complete")
	return resp.Filename, nil
}
