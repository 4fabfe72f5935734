package precomputed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"mito-gallery-service/internal/core/domain"
	ports "mito-gallery-service/internal/core/ports/output"
)

const (
	schemePrecomputed = "precomputed://"
	schemeGS          = "gs://"
	gcsPublicBase     = "https://storage.googleapis.com/"

	legacyMeshType = "neuroglancer_legacy_mesh"
	// Fragments above this size are rejected rather than buffered.
	maxFragmentBytes = 256 << 20
)

type Config struct {
	// Source is a precomputed segmentation, e.g.
	// precomputed://https://host/path or gs://bucket/path.
	Source  string
	Timeout time.Duration
	// RequestsPerSecond throttles requests to the data store. Zero disables it.
	RequestsPerSecond float64
}

type client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter

	mu      sync.Mutex
	meshDir string
}

// NewClient creates a mesh source for Neuroglancer precomputed legacy
// meshes served over HTTP(S). gs:// sources are read through the public GCS
// endpoint.
func NewClient(cfg Config) (ports.MeshSource, error) {
	base, err := ResolveURL(cfg.Source)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}, nil
}

// ResolveURL turns a Neuroglancer source into an HTTP(S) base URL.
func ResolveURL(source string) (string, error) {
	src := strings.TrimSpace(source)
	src = strings.TrimPrefix(src, schemePrecomputed)
	switch {
	case strings.HasPrefix(src, schemeGS):
		src = gcsPublicBase + strings.TrimPrefix(src, schemeGS)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
	default:
		return "", fmt.Errorf("%w: source %q", domain.ErrUnsupportedMeshFormat, source)
	}
	return strings.TrimRight(src, "/"), nil
}

type segmentationInfo struct {
	Mesh string `json:"mesh"`
}

type meshInfo struct {
	Type string `json:"@type"`
}

type manifest struct {
	Fragments []string `json:"fragments"`
}

func (c *client) get(ctx context.Context, url string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentBytes+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", url, err)
	}
	if len(body) > maxFragmentBytes {
		return nil, resp.StatusCode, fmt.Errorf("GET %s: body exceeds %d bytes", url, maxFragmentBytes)
	}
	return body, resp.StatusCode, nil
}

// meshDirectory reads the segmentation info once and remembers the mesh
// directory. Failures are not cached.
func (c *client) meshDirectory(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.meshDir != "" {
		return c.meshDir, nil
	}

	body, _, err := c.get(ctx, c.baseURL+"/info")
	if err != nil {
		return "", fmt.Errorf("segmentation info: %w", err)
	}
	var info segmentationInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("decode segmentation info: %w", err)
	}
	if info.Mesh == "" {
		return "", fmt.Errorf("%w: segmentation has no mesh directory", domain.ErrUnsupportedMeshFormat)
	}
	dir := c.baseURL + "/" + strings.Trim(info.Mesh, "/")

	// The mesh info file is optional for legacy meshes.
	body, status, err := c.get(ctx, dir+"/info")
	switch {
	case err == nil:
		var mi meshInfo
		if err := json.Unmarshal(body, &mi); err != nil {
			return "", fmt.Errorf("decode mesh info: %w", err)
		}
		if mi.Type != "" && mi.Type != legacyMeshType {
			return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedMeshFormat, mi.Type)
		}
	case status == http.StatusNotFound || status == http.StatusForbidden:
	default:
		return "", fmt.Errorf("mesh info: %w", err)
	}

	c.meshDir = dir
	log.WithField("mesh_dir", dir).Debug("resolved mesh directory")
	return dir, nil
}

func (c *client) Mesh(ctx context.Context, segmentID int64) (*domain.Mesh, error) {
	dir, err := c.meshDirectory(ctx)
	if err != nil {
		return nil, err
	}

	id := strconv.FormatInt(segmentID, 10)
	body, status, err := c.get(ctx, dir+"/"+id+":0")
	if err != nil {
		if status == http.StatusNotFound || status == http.StatusForbidden {
			return nil, fmt.Errorf("%w: segment %d", domain.ErrMeshNotFound, segmentID)
		}
		return nil, fmt.Errorf("mesh manifest %d: %w", segmentID, err)
	}
	var m manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode mesh manifest %d: %w", segmentID, err)
	}
	if len(m.Fragments) == 0 {
		return nil, fmt.Errorf("%w: segment %d has no fragments", domain.ErrMeshNotFound, segmentID)
	}

	mesh := &domain.Mesh{}
	for _, name := range m.Fragments {
		raw, _, err := c.get(ctx, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("mesh fragment %s: %w", name, err)
		}
		frag, err := DecodeFragment(raw)
		if err != nil {
			return nil, fmt.Errorf("mesh fragment %s: %w", name, err)
		}
		mesh.Append(frag)
	}
	if mesh.Empty() {
		return nil, fmt.Errorf("segment %d: %w", segmentID, domain.ErrEmptyMesh)
	}

	log.WithFields(log.Fields{
		"mito_id":   segmentID,
		"fragments": len(m.Fragments),
		"vertices":  len(mesh.Vertices),
		"faces":     len(mesh.Faces),
	}).Debug("mesh fetched")

	return mesh, nil
}
