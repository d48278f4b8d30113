package data

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Provider retrieves a labeled dataset by identifier.
type Provider interface {
	Fetch(id string) (*Dataset, error)
}

// DefaultUCIBaseURL is the public UCI machine learning repository.
const DefaultUCIBaseURL = "https://archive.ics.uci.edu"

// UCIProvider fetches datasets through the UCI repository API.
type UCIProvider struct {
	BaseURL string
	Client  *http.Client
	Logger  *zap.Logger
}

// NewUCIProvider returns a provider using baseURL (DefaultUCIBaseURL when empty).
func NewUCIProvider(baseURL string, timeout time.Duration, logger *zap.Logger) *UCIProvider {
	if baseURL == "" {
		baseURL = DefaultUCIBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UCIProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
		Logger:  logger,
	}
}

type uciVariable struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Type string `json:"type"`
}

type uciResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID        int           `json:"uci_id"`
		Name      string        `json:"name"`
		DataURL   string        `json:"data_url"`
		Variables []uciVariable `json:"variables"`
	} `json:"data"`
}

// Fetch resolves the dataset metadata, then downloads and decodes its CSV.
func (p *UCIProvider) Fetch(id string) (*Dataset, error) {
	start := time.Now()
	meta, err := p.metadata(id)
	if err != nil {
		return nil, err
	}

	var opts CSVOptions
	for _, v := range meta.Data.Variables {
		switch v.Role {
		case "Feature":
			opts.Features = append(opts.Features, v.Name)
		case "Target":
			if opts.Target != "" {
				return nil, errors.Wrapf(ErrRetrieval, "dataset %s has more than one target", id)
			}
			opts.Target = v.Name
		}
	}
	if opts.Target == "" {
		return nil, errors.Wrapf(ErrRetrieval, "dataset %s declares no target variable", id)
	}

	body, err := p.get(meta.Data.DataURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	ds, err := ReadCSV(body, opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "dataset %s", id)
	}
	ds.Name = meta.Data.Name

	p.Logger.Info("fetched dataset",
		zap.String("id", id),
		zap.String("name", ds.Name),
		zap.Int("rows", ds.Len()),
		zap.Int("features", ds.NumFeatures()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return ds, nil
}

func (p *UCIProvider) metadata(id string) (*uciResponse, error) {
	body, err := p.get(p.BaseURL + "/api/dataset?id=" + url.QueryEscape(id))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp uciResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, errors.Wrapf(ErrRetrieval, "decode metadata for dataset %s: %v", id, err)
	}
	if resp.Status != http.StatusOK {
		return nil, errors.Wrapf(ErrRetrieval, "dataset %s: %s", id, resp.Message)
	}
	if resp.Data.DataURL == "" {
		return nil, errors.Wrapf(ErrRetrieval, "dataset %s has no downloadable data", id)
	}
	return &resp, nil
}

func (p *UCIProvider) get(rawURL string) (io.ReadCloser, error) {
	resp, err := p.Client.Get(rawURL)
	if err != nil {
		return nil, errors.Wrapf(ErrRetrieval, "GET %s: %v", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Wrapf(ErrRetrieval, "GET %s: %s", rawURL, resp.Status)
	}
	return resp.Body, nil
}

// CachedProvider memoizes another provider in memory for the life of the
// process, so runs of several balancing modes download the dataset once.
// Cached datasets are shared and must not be mutated.
type CachedProvider struct {
	next   Provider
	cache  *lru.Cache[string, *Dataset]
	logger *zap.Logger
}

// NewCachedProvider wraps next with an LRU cache holding up to size datasets.
func NewCachedProvider(next Provider, size int, logger *zap.Logger) (*CachedProvider, error) {
	cache, err := lru.New[string, *Dataset](size)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create dataset cache")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{next: next, cache: cache, logger: logger}, nil
}

// Fetch returns the cached dataset or delegates and remembers the result.
// Failures are not cached.
func (c *CachedProvider) Fetch(id string) (*Dataset, error) {
	if ds, ok := c.cache.Get(id); ok {
		c.logger.Debug("dataset cache hit", zap.String("id", id))
		return ds, nil
	}
	ds, err := c.next.Fetch(id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, ds)
	return ds, nil
}

// String describes the cache for logs.
func (c *CachedProvider) String() string {
	return fmt.Sprintf("cached(%d entries)", c.cache.Len())
}
