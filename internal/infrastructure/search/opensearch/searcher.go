package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
	"github.com/dissolveproject/dissolve/pkg/errors"
)

// SearcherConfig holds configuration for the Searcher.
type SearcherConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Query is a single match/range/term clause in a log search.
type Query struct {
	MatchPhrase map[string]string
	Term        map[string]interface{}
	RangeGTE    map[string]interface{}
	RangeLTE    map[string]interface{}
}

// Filter narrows a search without affecting relevance scoring.
type Filter struct {
	Field  string
	Values []interface{}
}

// SortField orders results by a field.
type SortField struct {
	Field     string
	Ascending bool
}

// Pagination bounds the result window.
type Pagination struct {
	From int
	Size int
}

// Aggregation requests a bucketed count over a field, e.g. log lines per rank.
type Aggregation struct {
	Name  string
	Field string
	Size  int
}

// SearchRequest describes a run log search.
type SearchRequest struct {
	Index        string
	Must         []Query
	Filters      []Filter
	Sort         []SortField
	Pagination   Pagination
	Aggregations []Aggregation
}

// SearchHit is one matched document.
type SearchHit struct {
	ID     string
	Score  float64
	Source LogLine
}

// AggBucket is one bucket of an aggregation result.
type AggBucket struct {
	Key   string
	Count int64
}

// AggregationResult holds the buckets for a named aggregation.
type AggregationResult struct {
	Name    string
	Buckets []AggBucket
}

// SearchResult is the outcome of a Search call.
type SearchResult struct {
	Total        int64
	Hits         []SearchHit
	Aggregations []AggregationResult
}

// Searcher executes queries against the run log index.
type Searcher struct {
	client *Client
	config SearcherConfig
	logger logging.Logger
}

// NewSearcher creates a new Searcher.
func NewSearcher(client *Client, cfg SearcherConfig, logger logging.Logger) *Searcher {
	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = 50
	}
	if cfg.MaxPageSize == 0 {
		cfg.MaxPageSize = 1000
	}

	return &Searcher{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// Search runs a query against the given index and returns matching log lines.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	body, err := s.buildQueryDSL(req)
	if err != nil {
		return nil, err
	}

	osReq := opensearchapi.SearchRequest{
		Index: []string{req.Index},
		Body:  bytes.NewReader(body),
	}

	resp, err := osReq.Do(ctx, s.client.GetClient())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSearchError, "search request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, s.handleErrorResponse(resp)
	}

	return s.parseSearchResponse(resp.Body)
}

// Count returns the number of documents matching the request's query and
// filters, ignoring pagination and aggregations.
func (s *Searcher) Count(ctx context.Context, req SearchRequest) (int64, error) {
	query := s.buildQuery(req)
	body, err := json.Marshal(map[string]interface{}{"query": query})
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "failed to marshal count query")
	}

	osReq := opensearchapi.CountRequest{
		Index: []string{req.Index},
		Body:  bytes.NewReader(body),
	}

	resp, err := osReq.Do(ctx, s.client.GetClient())
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeSearchError, "count request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return 0, s.handleErrorResponse(resp)
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "failed to decode count response")
	}
	return countResp.Count, nil
}

func (s *Searcher) buildQueryDSL(req SearchRequest) ([]byte, error) {
	size := req.Pagination.Size
	if size == 0 {
		size = s.config.DefaultPageSize
	}
	if size > s.config.MaxPageSize {
		size = s.config.MaxPageSize
	}

	dsl := map[string]interface{}{
		"query": s.buildQuery(req),
		"from":  req.Pagination.From,
		"size":  size,
	}

	if len(req.Sort) > 0 {
		sorts := make([]map[string]interface{}, 0, len(req.Sort))
		for _, sf := range req.Sort {
			order := "asc"
			if !sf.Ascending {
				order = "desc"
			}
			sorts = append(sorts, map[string]interface{}{sf.Field: map[string]interface{}{"order": order}})
		}
		dsl["sort"] = sorts
	}

	if len(req.Aggregations) > 0 {
		dsl["aggs"] = s.buildAggregations(req.Aggregations)
	}

	body, err := json.Marshal(dsl)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to marshal search query")
	}
	return body, nil
}

func (s *Searcher) buildQuery(req SearchRequest) map[string]interface{} {
	var must []map[string]interface{}
	for _, q := range req.Must {
		must = append(must, s.buildClause(q))
	}

	var filter []map[string]interface{}
	for _, f := range req.Filters {
		filter = append(filter, s.buildFilter(f))
	}

	if len(must) == 0 && len(filter) == 0 {
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	return map[string]interface{}{"bool": boolQuery}
}

func (s *Searcher) buildClause(q Query) map[string]interface{} {
	switch {
	case q.MatchPhrase != nil:
		return map[string]interface{}{"match_phrase": q.MatchPhrase}
	case q.Term != nil:
		return map[string]interface{}{"term": q.Term}
	case q.RangeGTE != nil || q.RangeLTE != nil:
		rng := map[string]interface{}{}
		for k, v := range q.RangeGTE {
			rng[k] = map[string]interface{}{"gte": v}
		}
		for k, v := range q.RangeLTE {
			rng[k] = map[string]interface{}{"lte": v}
		}
		return map[string]interface{}{"range": rng}
	default:
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}
}

func (s *Searcher) buildFilter(f Filter) map[string]interface{} {
	if len(f.Values) == 1 {
		return map[string]interface{}{"term": map[string]interface{}{f.Field: f.Values[0]}}
	}
	return map[string]interface{}{"terms": map[string]interface{}{f.Field: f.Values}}
}

func (s *Searcher) buildAggregations(aggs []Aggregation) map[string]interface{} {
	result := make(map[string]interface{}, len(aggs))
	for _, a := range aggs {
		size := a.Size
		if size == 0 {
			size = 10
		}
		result[a.Name] = map[string]interface{}{
			"terms": map[string]interface{}{
				"field": a.Field,
				"size":  size,
			},
		}
	}
	return result
}

func (s *Searcher) parseSearchResponse(body io.Reader) (*SearchResult, error) {
	var raw struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source LogLine `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
		Aggregations map[string]struct {
			Buckets []struct {
				Key      string `json:"key"`
				KeyAsStr string `json:"key_as_string"`
				DocCount int64  `json:"doc_count"`
			} `json:"buckets"`
		} `json:"aggregations"`
	}

	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to decode search response")
	}

	result := &SearchResult{Total: raw.Hits.Total.Value}
	for _, h := range raw.Hits.Hits {
		result.Hits = append(result.Hits, SearchHit{ID: h.ID, Score: h.Score, Source: h.Source})
	}

	result.Aggregations = s.parseAggregationResult(raw.Aggregations)
	return result, nil
}

func (s *Searcher) parseAggregationResult(raw map[string]struct {
	Buckets []struct {
		Key      string `json:"key"`
		KeyAsStr string `json:"key_as_string"`
		DocCount int64  `json:"doc_count"`
	} `json:"buckets"`
}) []AggregationResult {
	var results []AggregationResult
	for name, agg := range raw {
		ar := AggregationResult{Name: name}
		for _, b := range agg.Buckets {
			key := b.Key
			if key == "" {
				key = b.KeyAsStr
			}
			ar.Buckets = append(ar.Buckets, AggBucket{Key: key, Count: b.DocCount})
		}
		results = append(results, ar)
	}
	return results
}

func (s *Searcher) handleErrorResponse(resp *opensearchapi.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}

	if err := json.Unmarshal(bodyBytes, &errResp); err == nil && errResp.Error.Reason != "" {
		return errors.New(errors.CodeSearchError, fmt.Sprintf("opensearch error: %s - %s", errResp.Error.Type, errResp.Error.Reason))
	}
	return errors.New(errors.CodeSearchError, fmt.Sprintf("opensearch error status: %d", resp.StatusCode))
}
