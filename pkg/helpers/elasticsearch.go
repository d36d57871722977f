package helpers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// NewESClient creates an Elasticsearch client with sane defaults and optional basic auth.
func NewESClient(addrs []string, username, password string) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: addrs,
		Username:  username,
		Password:  password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	}
	return elasticsearch.NewClient(cfg)
}

// barsMapping indexes name and address as text and keeps coordinates as
// keywords, matching the decimal-string shape of entity.Bar.
const barsMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "long"},
      "name":         {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "address":      {"type": "text"},
      "currentCount": {"type": "integer"},
      "capacity":     {"type": "integer"},
      "latitude":     {"type": "keyword"},
      "longitude":    {"type": "keyword"}
    }
  }
}`

// EnsureIndex creates index with the bar mapping unless it already exists.
func EnsureIndex(ctx context.Context, es *elasticsearch.Client, index string) error {
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(c, es)
	if err != nil {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	_ = exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := esapi.IndicesCreateRequest{Index: index, Body: strings.NewReader(barsMapping)}.Do(c, es)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", index, res.Status())
	}
	return nil
}
