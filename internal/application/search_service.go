package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/internal/domain/repository"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 50
)

// SearchService finds bars by name or address. It queries Elasticsearch
// when a client is configured and falls back to filtering the store.
type SearchService struct {
	ES     *elasticsearch.Client
	Index  string
	Bars   repository.BarRepository
	Logger *logrus.Logger
}

func NewSearchService(es *elasticsearch.Client, index string, bars repository.BarRepository, logger *logrus.Logger) *SearchService {
	return &SearchService{ES: es, Index: index, Bars: bars, Logger: logger}
}

func (s *SearchService) enabled() bool {
	return s.ES != nil && s.Index != ""
}

// IndexBar upserts one bar document keyed by its id.
func (s *SearchService) IndexBar(ctx context.Context, b entity.Bar) error {
	if !s.enabled() {
		return nil
	}
	body, err := json.Marshal(b)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      s.Index,
		DocumentID: strconv.FormatInt(b.ID, 10),
		Body:       strings.NewReader(string(body)),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		return fmt.Errorf("index bar %d: %w", b.ID, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index bar %d: %s", b.ID, res.Status())
	}
	return nil
}

// ApplyCountUpdate patches the indexed count of one bar, creating a partial
// document when the bar was never indexed.
func (s *SearchService) ApplyCountUpdate(ctx context.Context, ev CountUpdated) error {
	if !s.enabled() {
		return nil
	}
	doc := map[string]any{
		"id":           ev.BarID,
		"name":         ev.Name,
		"currentCount": ev.CurrentCount,
		"capacity":     ev.Capacity,
	}
	body, err := json.Marshal(map[string]any{"doc": doc, "doc_as_upsert": true})
	if err != nil {
		return err
	}
	req := esapi.UpdateRequest{
		Index:      s.Index,
		DocumentID: strconv.FormatInt(ev.BarID, 10),
		Body:       strings.NewReader(string(body)),
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		return fmt.Errorf("update bar %d: %w", ev.BarID, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("update bar %d: %s", ev.BarID, res.Status())
	}
	return nil
}

// Reindex pushes every bar in the store into the index.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if !s.enabled() {
		return 0, nil
	}
	bars, err := s.Bars.GetAllBars(ctx)
	if err != nil {
		return 0, err
	}
	for _, b := range bars {
		if err := s.IndexBar(ctx, b); err != nil {
			return 0, err
		}
	}
	return len(bars), nil
}

// Search returns up to size bars matching q. An empty query lists bars in store order.
func (s *SearchService) Search(ctx context.Context, q string, size int) ([]entity.Bar, error) {
	if size <= 0 || size > maxSearchSize {
		size = defaultSearchSize
	}
	q = strings.TrimSpace(q)
	if q != "" && s.enabled() && s.Bars != nil {
		bars, err := s.searchES(ctx, q, size)
		if err == nil {
			return bars, nil
		}
		if s.Logger != nil {
			s.Logger.WithError(err).Warn("es search failed, filtering store")
		}
	}
	return s.searchStore(ctx, q, size)
}

func (s *SearchService) searchStore(ctx context.Context, q string, size int) ([]entity.Bar, error) {
	bars, err := s.Bars.GetAllBars(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(q)
	out := make([]entity.Bar, 0, size)
	for _, b := range bars {
		if len(out) == size {
			break
		}
		if needle == "" ||
			strings.Contains(strings.ToLower(b.Name), needle) ||
			strings.Contains(strings.ToLower(b.Address), needle) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *SearchService) searchES(ctx context.Context, q string, size int) ([]entity.Bar, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"name^2", "address"},
				"fuzziness": "AUTO",
			},
		},
		"_source": false,
		"size":    size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	// The index only ranks; counts always come from the store.
	out := make([]entity.Bar, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		b, err := s.Bars.GetBar(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}
