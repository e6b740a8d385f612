package remote

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// sshConn implements Conn over one ssh.Client. Commands run in fresh
// exec sessions; file transfer shares the connection through a lazily
// created SFTP subsystem client.
type sshConn struct {
	client *ssh.Client
	sftp   *sftp.Client
}

// Run executes one shell command and returns its combined output.
func (c *sshConn) Run(ctx context.Context, cmd string) (string, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("opening exec session: %w", err)
	}
	defer sess.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := sess.CombinedOutput(cmd)
		done <- result{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		// Closing the session fails the in-flight command; that error
		// is surfaced as a normal failure outcome.
		sess.Close()
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return string(res.out), fmt.Errorf("remote command failed: %w: %s", res.err, strings.TrimSpace(string(res.out)))
		}
		return string(res.out), nil
	}
}

// Upload mirrors localDir into remoteDir, preserving file modes.
func (c *sshConn) Upload(ctx context.Context, localDir, remoteDir string) error {
	ftp, err := c.sftpClient()
	if err != nil {
		return err
	}

	return filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		target := path.Join(remoteDir, filepath.ToSlash(rel))

		if d.IsDir() {
			return ftp.MkdirAll(target)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := c.uploadFile(ftp, p, target); err != nil {
			return err
		}
		return ftp.Chmod(target, info.Mode().Perm())
	})
}

func (c *sshConn) uploadFile(ftp *sftp.Client, local, remote string) error {
	// #nosec G304 - local is a file inside the published output tree
	src, err := os.Open(local)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := ftp.Create(remote)
	if err != nil {
		return fmt.Errorf("creating %s: %w", remote, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying to %s: %w", remote, err)
	}
	return nil
}

func (c *sshConn) sftpClient() (*sftp.Client, error) {
	if c.sftp != nil {
		return c.sftp, nil
	}
	ftp, err := sftp.NewClient(c.client)
	if err != nil {
		return nil, fmt.Errorf("opening sftp subsystem: %w", err)
	}
	c.sftp = ftp
	return ftp, nil
}

// Close implements Conn.
func (c *sshConn) Close() error {
	if c.sftp != nil {
		c.sftp.Close()
	}
	return c.client.Close()
}
