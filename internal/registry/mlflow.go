package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	searchVersionsPath = "/api/2.0/mlflow/model-versions/search"
	listArtifactsPath  = "/api/2.0/mlflow/artifacts/list"
	getArtifactPath    = "/get-artifact"
	searchPageSize     = 200
)

// MLflowClient implements Client against an MLflow tracking server REST API.
// Artifacts are downloaded through the tracking server, which proxies the
// underlying artifact store (e.g. MinIO/S3).
type MLflowClient struct {
	baseURL    string
	httpClient *http.Client
	// metaTimeout bounds search and list calls. Artifact downloads are only
	// bounded by the caller's context since weights can be large.
	metaTimeout time.Duration
}

// NewMLflowClient constructs a client for the tracking server at baseURL.
func NewMLflowClient(baseURL string, metaTimeout time.Duration) *MLflowClient {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &MLflowClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Transport: tr},
		metaTimeout: metaTimeout,
	}
}

type searchVersionsResponse struct {
	ModelVersions []ModelVersion `json:"model_versions"`
	NextPageToken string         `json:"next_page_token"`
}

// ListVersions searches the model registry for every version of name,
// following pagination.
func (c *MLflowClient) ListVersions(ctx context.Context, name string) ([]ModelVersion, error) {
	var out []ModelVersion
	token := ""
	for {
		q := url.Values{}
		q.Set("filter", fmt.Sprintf("name='%s'", strings.ReplaceAll(name, "'", "\\'")))
		q.Set("max_results", fmt.Sprint(searchPageSize))
		if token != "" {
			q.Set("page_token", token)
		}
		var page searchVersionsResponse
		err := c.getJSON(ctx, "search versions", searchVersionsPath, q, &page)
		// MLflow answers an unknown model with 200 and no versions, so a 404
		// here means the tracking URI or API path is wrong.
		if err != nil {
			return nil, err
		}
		out = append(out, page.ModelVersions...)
		if page.NextPageToken == "" {
			return out, nil
		}
		token = page.NextPageToken
	}
}

type artifactFile struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

type listArtifactsResponse struct {
	RootURI       string         `json:"root_uri"`
	Files         []artifactFile `json:"files"`
	NextPageToken string         `json:"next_page_token"`
}

// FetchArtifact downloads every artifact file of v's run into dstDir,
// preserving relative paths, and returns dstDir.
func (c *MLflowClient) FetchArtifact(ctx context.Context, v ModelVersion, dstDir string) (string, error) {
	if strings.TrimSpace(v.RunID) == "" {
		return "", fmt.Errorf("version %s of %s has no run id", v.Version, v.Name)
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", err
	}
	files, err := c.listFiles(ctx, v.RunID, "")
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("run %s has no artifacts", v.RunID)
	}
	for _, f := range files {
		if err := c.download(ctx, v.RunID, f, dstDir); err != nil {
			return "", err
		}
	}
	return dstDir, nil
}

// listFiles walks the artifact tree of runID below dir and returns file paths.
func (c *MLflowClient) listFiles(ctx context.Context, runID, dir string) ([]string, error) {
	var files []string
	token := ""
	for {
		q := url.Values{}
		q.Set("run_id", runID)
		if dir != "" {
			q.Set("path", dir)
		}
		if token != "" {
			q.Set("page_token", token)
		}
		var page listArtifactsResponse
		if err := c.getJSON(ctx, "list artifacts", listArtifactsPath, q, &page); err != nil {
			return nil, err
		}
		for _, f := range page.Files {
			if f.IsDir {
				sub, err := c.listFiles(ctx, runID, f.Path)
				if err != nil {
					return nil, err
				}
				files = append(files, sub...)
				continue
			}
			files = append(files, f.Path)
		}
		if page.NextPageToken == "" {
			return files, nil
		}
		token = page.NextPageToken
	}
}

func (c *MLflowClient) download(ctx context.Context, runID, artifactPath, dstDir string) error {
	rel, err := safeRelPath(artifactPath)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("path", artifactPath)
	q.Set("run_uuid", runID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+getArtifactPath+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("get artifact "+artifactPath, resp)
	}
	target := filepath.Join(dstDir, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("download %s: %w", artifactPath, err)
	}
	return f.Close()
}

func (c *MLflowClient) getJSON(ctx context.Context, op, p string, q url.Values, out any) error {
	if c.metaTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.metaTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+p+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("registry %s: decode: %w", op, err)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// safeRelPath rejects artifact paths that would escape the destination.
func safeRelPath(p string) (string, error) {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid artifact path %q", p)
		}
	}
	clean := path.Clean("/" + p)
	if clean == "/" {
		return "", fmt.Errorf("invalid artifact path %q", p)
	}
	return filepath.FromSlash(strings.TrimPrefix(clean, "/")), nil
}
