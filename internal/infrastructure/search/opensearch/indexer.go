package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
	"github.com/dissolveproject/dissolve/pkg/errors"
)

var (
	ErrIndexAlreadyExists  = errors.New(errors.CodeConflict, "index already exists")
	ErrIndexNotFound       = errors.New(errors.CodeNotFound, "index not found")
	ErrIndexCreationFailed = errors.New(errors.CodeSearchError, "index creation failed")
	ErrDocumentIndexFailed = errors.New(errors.CodeSearchError, "document index failed")
	ErrDocumentNotFound    = errors.New(errors.CodeNotFound, "document not found")
)

// IndexMapping is the subset of an OpenSearch index-creation body this
// package ever needs: static settings plus a field mapping.
type IndexMapping struct {
	Settings map[string]interface{}
	Mappings map[string]interface{}
}

// BulkItemError records one document's failure within a bulk request.
type BulkItemError struct {
	DocID     string
	ErrorType string
	Reason    string
}

// BulkResult summarizes a BulkIndex call.
type BulkResult struct {
	Succeeded int
	Failed    int
	Errors    []BulkItemError
}

// LogLine is one line of Messenger output, as indexed for a run.
type LogLine struct {
	RunID     string    `json:"run_id"`
	Rank      int       `json:"rank"`
	Iteration int64     `json:"iteration"`
	Level     string    `json:"level"`
	Procedure string    `json:"procedure"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// LogLineIndexMapping is the field mapping used for every run log index.
func LogLineIndexMapping() IndexMapping {
	return IndexMapping{
		Settings: map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 1,
		},
		Mappings: map[string]interface{}{
			"properties": map[string]interface{}{
				"run_id":    map[string]interface{}{"type": "keyword"},
				"rank":      map[string]interface{}{"type": "integer"},
				"iteration": map[string]interface{}{"type": "long"},
				"level":     map[string]interface{}{"type": "keyword"},
				"procedure": map[string]interface{}{"type": "keyword"},
				"message":   map[string]interface{}{"type": "text"},
				"timestamp": map[string]interface{}{"type": "date"},
			},
		},
	}
}

// IndexerConfig holds configuration for the Indexer.
type IndexerConfig struct {
	BulkBatchSize int
	IndexPrefix   string
	RefreshPolicy string
}

// Indexer manages index operations and log-line ingestion.
type Indexer struct {
	client *Client
	config IndexerConfig
	logger logging.Logger
}

// NewIndexer creates a new Indexer.
func NewIndexer(client *Client, cfg IndexerConfig, logger logging.Logger) *Indexer {
	if cfg.BulkBatchSize == 0 {
		cfg.BulkBatchSize = 500
	}
	if cfg.IndexPrefix == "" {
		cfg.IndexPrefix = "dissolve-runlog-"
	}
	if cfg.RefreshPolicy == "" {
		cfg.RefreshPolicy = "false"
	}

	return &Indexer{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// IndexNameForRun returns the index name a run's log lines are written to.
func (i *Indexer) IndexNameForRun(runID string) string {
	return i.config.IndexPrefix + runID
}

// CreateIndex creates a new index with the given mapping.
func (i *Indexer) CreateIndex(ctx context.Context, indexName string, mapping IndexMapping) error {
	exists, err := i.IndexExists(ctx, indexName)
	if err != nil {
		return err
	}
	if exists {
		return ErrIndexAlreadyExists
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to marshal index mapping")
	}

	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}

	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.CodeSearchError, "failed to create index request")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return i.handleErrorResponse(resp, ErrIndexCreationFailed)
	}

	i.logger.Info("run log index created", logging.String("index", indexName))
	return nil
}

// EnsureRunIndex creates the log index for runID if it does not already
// exist, tolerating a race against a concurrent writer.
func (i *Indexer) EnsureRunIndex(ctx context.Context, runID string) (string, error) {
	name := i.IndexNameForRun(runID)
	if err := i.CreateIndex(ctx, name, LogLineIndexMapping()); err != nil && err != ErrIndexAlreadyExists {
		return "", err
	}
	return name, nil
}

// DeleteIndex deletes an index.
func (i *Indexer) DeleteIndex(ctx context.Context, indexName string) error {
	req := opensearchapi.IndicesDeleteRequest{
		Index: []string{indexName},
	}

	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.CodeSearchError, "failed to delete index request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return ErrIndexNotFound
	}
	if resp.IsError() {
		return i.handleErrorResponse(resp, errors.New(errors.CodeSearchError, "delete index failed"))
	}

	i.logger.Warn("run log index deleted", logging.String("index", indexName))
	return nil
}

// IndexExists checks if an index exists.
func (i *Indexer) IndexExists(ctx context.Context, indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}

	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return false, errors.Wrap(err, errors.CodeSearchError, "failed to check index existence")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	default:
		return false, i.handleErrorResponse(resp, errors.New(errors.CodeSearchError, "check index existence failed"))
	}
}

// IndexLogLine indexes a single log line.
func (i *Indexer) IndexLogLine(ctx context.Context, docID string, line LogLine) error {
	indexName := i.IndexNameForRun(line.RunID)

	body, err := json.Marshal(line)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to marshal log line")
	}

	req := opensearchapi.IndexRequest{
		Index:      indexName,
		DocumentID: docID,
		Body:       bytes.NewReader(body),
		Refresh:    i.config.RefreshPolicy,
	}

	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.CodeSearchError, "failed to index log line request")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return i.handleErrorResponse(resp, ErrDocumentIndexFailed)
	}
	return nil
}

// BulkIndexLogLines indexes multiple log lines for one run in batches.
func (i *Indexer) BulkIndexLogLines(ctx context.Context, runID string, lines map[string]LogLine) (*BulkResult, error) {
	result := &BulkResult{}
	if len(lines) == 0 {
		return result, nil
	}
	indexName := i.IndexNameForRun(runID)

	docIDs := make([]string, 0, len(lines))
	for id := range lines {
		docIDs = append(docIDs, id)
	}

	batchSize := i.config.BulkBatchSize
	totalDocs := len(docIDs)

	for start := 0; start < totalDocs; start += batchSize {
		end := start + batchSize
		if end > totalDocs {
			end = totalDocs
		}
		batchIDs := docIDs[start:end]
		var buf bytes.Buffer

		for _, id := range batchIDs {
			line := lines[id]

			meta := fmt.Sprintf(`{"index":{"_index":"%s","_id":"%s"}}`, indexName, id)
			buf.WriteString(meta + "\n")

			docBytes, err := json.Marshal(line)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, BulkItemError{
					DocID:     id,
					ErrorType: "serialization_error",
					Reason:    err.Error(),
				})
				continue
			}
			buf.Write(docBytes)
			buf.WriteString("\n")
		}

		if buf.Len() == 0 {
			continue
		}

		req := opensearchapi.BulkRequest{
			Body:    bytes.NewReader(buf.Bytes()),
			Refresh: i.config.RefreshPolicy,
		}

		resp, err := req.Do(ctx, i.client.GetClient())
		if err != nil {
			return result, errors.Wrap(err, errors.CodeSearchError, "bulk request failed")
		}
		defer resp.Body.Close()

		if resp.IsError() {
			result.Failed += len(batchIDs)
			bulkErr := i.handleErrorResponse(resp, errors.New(errors.CodeSearchError, "bulk batch failed"))
			result.Errors = append(result.Errors, BulkItemError{
				DocID:     "batch_error",
				ErrorType: "http_error",
				Reason:    bulkErr.Error(),
			})
			continue
		}

		var bulkResp struct {
			Errors bool `json:"errors"`
			Items  []map[string]struct {
				ID     string `json:"_id"`
				Status int    `json:"status"`
				Error  struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error,omitempty"`
			} `json:"items"`
		}

		if err := json.NewDecoder(resp.Body).Decode(&bulkResp); err != nil {
			return result, errors.Wrap(err, errors.CodeInternal, "failed to decode bulk response")
		}

		if !bulkResp.Errors {
			result.Succeeded += len(bulkResp.Items)
			continue
		}
		for _, item := range bulkResp.Items {
			var info struct {
				ID     string
				Status int
				Error  struct {
					Type   string
					Reason string
				}
			}
			for _, v := range item {
				info.ID = v.ID
				info.Status = v.Status
				info.Error.Type = v.Error.Type
				info.Error.Reason = v.Error.Reason
				break
			}

			if info.Status >= 200 && info.Status < 300 {
				result.Succeeded++
			} else {
				result.Failed++
				result.Errors = append(result.Errors, BulkItemError{
					DocID:     info.ID,
					ErrorType: info.Error.Type,
					Reason:    info.Error.Reason,
				})
			}
		}
	}

	i.logger.Info("bulk log line index completed",
		logging.Int("total", totalDocs),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed))

	return result, nil
}

// DeleteDocument deletes a single log line by document id.
func (i *Indexer) DeleteDocument(ctx context.Context, indexName, docID string) error {
	req := opensearchapi.DeleteRequest{
		Index:      indexName,
		DocumentID: docID,
		Refresh:    i.config.RefreshPolicy,
	}

	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.CodeSearchError, "failed to delete document request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return ErrDocumentNotFound
	}
	if resp.IsError() {
		return i.handleErrorResponse(resp, errors.New(errors.CodeSearchError, "delete document failed"))
	}
	return nil
}

func (i *Indexer) handleErrorResponse(resp *opensearchapi.Response, defaultErr error) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}

	if err := json.Unmarshal(bodyBytes, &errResp); err == nil && errResp.Error.Reason != "" {
		return errors.Wrap(defaultErr, errors.CodeSearchError, fmt.Sprintf("opensearch error: %s - %s", errResp.Error.Type, errResp.Error.Reason))
	}
	return errors.Wrap(defaultErr, errors.CodeSearchError, fmt.Sprintf("opensearch error status: %d", resp.StatusCode))
}
