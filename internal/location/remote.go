package location

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Remote is a Location backed by a blocksync server reachable over HTTP.
type Remote struct {
	host string
	port int
	path string

	client *http.Client

	mu      sync.Mutex
	cached  bool
	size    int64
	present bool
	statErr error
}

// NewRemote wraps the given host/port/path as a Location that issues its
// requests through http.DefaultClient; WithClient substitutes another client.
func NewRemote(host string, port int, path string) *Remote {
	return &Remote{host: host, port: port, path: path, client: http.DefaultClient}
}

// WithClient returns a new Remote, otherwise identical to r, that issues
// requests through client, primarily so tests can point at an
// httptest.Server.
func (r *Remote) WithClient(client *http.Client) *Remote {
	return &Remote{host: r.host, port: r.port, path: r.path, client: client}
}

func (r *Remote) String() string {
	return fmt.Sprintf("http://%s:%d%s", r.host, r.port, r.path)
}

func (r *Remote) IsRemote() bool { return true }

// Invalidate clears the cached file_info.
func (r *Remote) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = false
}

func (r *Remote) url(endpoint string, params url.Values) string {
	return fmt.Sprintf("http://%s:%d/%s?%s", r.host, r.port, endpoint, params.Encode())
}

func (r *Remote) infoParams() url.Values {
	v := url.Values{}
	v.Set("filename", r.path)
	return v
}

func (r *Remote) fetchInfo(ctx context.Context) (int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url("info", r.infoParams()), nil)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to build info request")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to reach server for info")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, false, nil
	}
	if resp.StatusCode/100 != 2 {
		return 0, false, errors.Errorf("info request failed with status %s", resp.Status)
	}

	var body struct {
		Size int64 `json:"size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, false, errors.Wrap(err, "failed to decode info response")
	}
	return body.Size, true, nil
}

func (r *Remote) stat(ctx context.Context) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.cached {
		r.size, r.present, r.statErr = r.fetchInfo(ctx)
		r.cached = true
	}
	return r.size, r.present, r.statErr
}

func (r *Remote) Exists(ctx context.Context) (bool, error) {
	_, present, err := r.stat(ctx)
	return present, err
}

func (r *Remote) FileSize(ctx context.Context) (int64, error) {
	size, present, err := r.stat(ctx)
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, errors.Errorf("remote file %s does not exist", r.path)
	}
	return size, nil
}

func (r *Remote) GetHashes(ctx context.Context, blockSize int, method string, concurrency int) (map[int64]string, error) {
	v := url.Values{}
	v.Set("filename", r.path)
	v.Set("block_size", strconv.Itoa(blockSize))
	v.Set("concurrency", strconv.Itoa(concurrency))
	v.Set("method", method)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url("hashes", v), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build hashes request")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reach server for hashes")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, errors.Errorf("hashes request failed with status %s", resp.Status)
	}

	result := make(map[int64]string)
	scanner := bufio.NewScanner(resp.Body)
	// Lines are "<offset>\t<digest>"; the default 64KiB token limit is more
	// than enough for a single such line, but grow the buffer defensively.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		offsetStr, digest, found := strings.Cut(line, "\t")
		if !found {
			continue
		}
		offset, err := strconv.ParseInt(offsetStr, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed hash line %q", line)
		}
		result[offset] = digest
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to stream hashes response")
	}
	return result, nil
}

func (r *Remote) ReadBlock(ctx context.Context, offset int64, size int) ([]byte, error) {
	v := url.Values{}
	v.Set("filename", r.path)
	v.Set("offset", strconv.FormatInt(offset, 10))
	v.Set("size", strconv.Itoa(size))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url("blocks", v), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build block read request")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reach server for block read")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, errors.Errorf("block read failed with status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read block response body")
	}
	return data, nil
}

func (r *Remote) WriteBlock(ctx context.Context, offset int64, data []byte) error {
	v := url.Values{}
	v.Set("filename", r.path)
	v.Set("offset", strconv.FormatInt(offset, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url("blocks", v), bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "failed to build block write request")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to reach server for block write")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return errors.Errorf("block write failed with status %s", resp.Status)
	}
	return nil
}

func (r *Remote) Resize(ctx context.Context, size int64) error {
	v := url.Values{}
	v.Set("filename", r.path)
	v.Set("size", strconv.FormatInt(size, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url("resize", v), nil)
	if err != nil {
		return errors.Wrap(err, "failed to build resize request")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to reach server for resize")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return errors.Errorf("resize failed with status %s", resp.Status)
	}
	r.Invalidate()
	return nil
}
