// Package qdrant implements the vector index on a Qdrant collection through
// its REST API. All namespaces share one collection and are separated by a
// keyword payload field that every search and delete filters on.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/rag-lab/internal/vectors"
	"github.com/JaimeStill/rag-lab/pkg/lifecycle"
)

const namespaceField = "namespace"

// Config locates the collection.
type Config struct {
	URL        string
	Collection string
	APIKey     string
	Dimensions int
	Timeout    time.Duration
}

type index struct {
	cfg    Config
	client *http.Client
	base   string
	logger *slog.Logger
}

// New creates a client for the configured collection. The collection is
// created on startup when it does not exist.
func New(cfg Config, logger *slog.Logger) vectors.Index {
	return &index{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		base:   strings.TrimSuffix(cfg.URL, "/") + "/collections/" + url.PathEscape(cfg.Collection),
		logger: logger.With("system", "vectors", "backend", "qdrant"),
	}
}

func (x *index) Dimensions() int {
	return x.cfg.Dimensions
}

// Start prepares the collection before the server accepts traffic. A
// collection whose vector size differs from the configured dimensions fails
// with vectors.ErrDimensionMismatch.
func (x *index) Start(lc *lifecycle.Coordinator) error {
	x.logger.Info("starting vector index", "collection", x.cfg.Collection, "dimensions", x.cfg.Dimensions)

	if err := x.ensureCollection(lc.Context()); err != nil {
		return fmt.Errorf("collection %s: %w", x.cfg.Collection, err)
	}

	x.logger.Info("collection ready", "collection", x.cfg.Collection)
	return nil
}

type collectionResponse struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors json.RawMessage `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// vectorSize reads the size of the collection's unnamed vector. Named
// vector collections report zero.
func (c *collectionResponse) vectorSize() int {
	var single struct {
		Size int `json:"size"`
	}
	if err := json.Unmarshal(c.Result.Config.Params.Vectors, &single); err != nil {
		return 0
	}
	return single.Size
}

func (x *index) ensureCollection(ctx context.Context) error {
	var info collectionResponse
	status, err := x.do(ctx, http.MethodGet, "", nil, &info)

	switch {
	case status == http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{
				"size":     x.cfg.Dimensions,
				"distance": "Cosine",
			},
		}
		if status, err := x.do(ctx, http.MethodPut, "", body, nil); err != nil && status != http.StatusConflict {
			return fmt.Errorf("create collection: %w", err)
		}
	case err != nil:
		return err
	default:
		if size := info.vectorSize(); size != x.cfg.Dimensions {
			return fmt.Errorf("%w: collection holds %d-dimensional vectors, configured %d",
				vectors.ErrDimensionMismatch, size, x.cfg.Dimensions)
		}
	}

	index := map[string]any{"field_name": namespaceField, "field_schema": "keyword"}
	if _, err := x.do(ctx, http.MethodPut, "/index?wait=true", index, nil); err != nil {
		return fmt.Errorf("create namespace index: %w", err)
	}
	return nil
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (x *index) Upsert(ctx context.Context, namespace string, records []vectors.Record) error {
	if err := vectors.CheckRecords(x.cfg.Dimensions, records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	points := make([]point, len(records))
	for i, r := range records {
		points[i] = point{
			ID:     pointID(namespace, r.ID),
			Vector: r.Vector,
			Payload: map[string]any{
				namespaceField: namespace,
				"text":         r.Text,
				"metadata":     r.Metadata,
			},
		}
	}

	_, err := x.do(ctx, http.MethodPut, "/points?wait=true", map[string]any{"points": points}, nil)
	return err
}

type searchResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload struct {
			Text     string         `json:"text"`
			Metadata map[string]any `json:"metadata"`
		} `json:"payload"`
	} `json:"result"`
}

func (x *index) Query(ctx context.Context, namespace string, vector []float64, k int) ([]vectors.Match, error) {
	if err := vectors.CheckQuery(x.cfg.Dimensions, vector); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []vectors.Match{}, nil
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
		"filter":       namespaceFilter(namespace),
	}

	var resp searchResponse
	status, err := x.do(ctx, http.MethodPost, "/points/search", body, &resp)
	if status == http.StatusNotFound {
		return []vectors.Match{}, nil
	}
	if err != nil {
		return nil, err
	}

	matches := make([]vectors.Match, len(resp.Result))
	for i, r := range resp.Result {
		matches[i] = vectors.Match{
			Text:     r.Payload.Text,
			Score:    r.Score,
			Metadata: r.Payload.Metadata,
		}
	}
	return matches, nil
}

func (x *index) Purge(ctx context.Context, namespace string) error {
	body := map[string]any{"filter": namespaceFilter(namespace)}

	status, err := x.do(ctx, http.MethodPost, "/points/delete?wait=true", body, nil)
	if status == http.StatusNotFound {
		return nil
	}
	return err
}

func namespaceFilter(namespace string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": namespaceField, "match": map[string]any{"value": namespace}},
		},
	}
}

// pointID derives a stable UUID from namespace and record ID so that
// re-upserting a record replaces it. Records without an ID get a random one.
func pointID(namespace, id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace+"/"+id)).String()
}

// do sends a JSON request and decodes the JSON response into out when
// non-nil. The HTTP status is returned alongside any error.
func (x *index) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, x.base+path, reader)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", vectors.ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if x.cfg.APIKey != "" {
		req.Header.Set("api-key", x.cfg.APIKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", vectors.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("%w: %s %s: status %d: %s",
			vectors.ErrUnavailable, method, path, resp.StatusCode, bytes.TrimSpace(detail))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decode response: %v", vectors.ErrUnavailable, err)
		}
	}
	return resp.StatusCode, nil
}
