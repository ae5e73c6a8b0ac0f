package fetcher

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Resolver turns an input argument (local path, http(s):// or ftp:// URL,
// possibly a zip archive) into a local file path ready for parsing.
type Resolver struct {
	HTTP *HTTPFetcher
	FTP  *FTPFetcher
}

// NewResolver builds a Resolver with default fetchers.
func NewResolver(httpOpts HTTPOptions, ftpOpts FTPOptions) *Resolver {
	return &Resolver{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
	}
}

// Resolve fetches remote inputs into workDir and unpacks zip archives.
// wantExt selects the file to surface from an archive (e.g. ".shp", ".csv");
// for non-archives the downloaded or given path is returned as is.
func (r *Resolver) Resolve(ctx context.Context, input, workDir, wantExt string) (string, error) {
	local := input

	if u, err := url.Parse(input); err == nil && (u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "ftp") {
		local = filepath.Join(workDir, filepath.Base(u.Path))
		zap.L().Info("fetching input", zap.String("url", input), zap.String("dest", local))

		switch u.Scheme {
		case "ftp":
			if _, err := r.FTP.DownloadToFile(ctx, input, local); err != nil {
				return "", err
			}
		default:
			if _, err := r.HTTP.DownloadToFile(ctx, input, local); err != nil {
				return "", err
			}
		}
	} else if _, err := os.Stat(local); err != nil {
		return "", eris.Wrapf(err, "fetcher: input %s", input)
	}

	if !strings.EqualFold(filepath.Ext(local), ".zip") {
		return local, nil
	}

	extractDir := filepath.Join(workDir, strings.TrimSuffix(filepath.Base(local), filepath.Ext(local)))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "fetcher: create extract dir %s", extractDir)
	}
	if _, err := ExtractZIP(local, extractDir); err != nil {
		return "", err
	}
	return FindByExt(extractDir, wantExt)
}
