package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP downloader. Regional geoportals still serve
// DTM tiles and survey archives over anonymous FTP.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads files over FTP.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates an FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", eris.New("ftp: empty path in url")
	}

	return host, path, nil
}

// DownloadToFile retrieves the file behind an FTP URL and writes it to path.
// Anonymous login only.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL, path string) (int64, error) {
	host, remotePath, err := parseFTPURL(ftpURL)
	if err != nil {
		return 0, err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", remotePath))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return 0, eris.Wrapf(err, "ftp: dial %s", host)
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return 0, eris.Wrap(err, "ftp: login")
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return 0, eris.Wrapf(err, "ftp: retrieve %s", remotePath)
	}
	defer func() { _ = resp.Close() }()

	out, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "ftp: create %s", path)
	}
	defer func() { _ = out.Close() }()

	n, err := io.Copy(out, resp)
	if err != nil {
		return n, eris.Wrapf(err, "ftp: write %s", path)
	}
	return n, nil
}
