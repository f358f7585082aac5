package opensearch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	opensearchgo "github.com/opensearch-project/opensearch-go/v2"
	"github.com/stretchr/testify/assert"
)

func newTestIndexer(serverURL string) *Indexer {
	osCfg := opensearchgo.Config{
		Addresses: []string{serverURL},
	}
	osClient, err := opensearchgo.NewClient(osCfg)
	if err != nil {
		panic(err)
	}

	c := &Client{
		client: osClient,
		config: ClientConfig{Addresses: []string{serverURL}},
		logger: newMockLogger(),
	}
	c.healthy.Store(true)

	idxCfg := IndexerConfig{
		BulkBatchSize: 500,
		IndexPrefix:   "dissolve-runlog-",
	}
	return NewIndexer(c, idxCfg, newMockLogger())
}

func testLogLine() LogLine {
	return LogLine{
		RunID:     "run-1",
		Rank:      0,
		Iteration: 42,
		Level:     "info",
		Procedure: "velocity-verlet",
		Message:   "step completed",
		Timestamp: time.Unix(0, 0).UTC(),
	}
}

func TestCreateIndex_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "HEAD" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == "PUT" && strings.Contains(r.URL.Path, "test-index") {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"acknowledged": true}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	indexer := newTestIndexer(server.URL)
	err := indexer.CreateIndex(context.Background(), "test-index", LogLineIndexMapping())
	assert.NoError(t, err)
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "HEAD" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	indexer := newTestIndexer(server.URL)
	err := indexer.CreateIndex(context.Background(), "test-index", LogLineIndexMapping())
	assert.Error(t, err)
	assert.Equal(t, ErrIndexAlreadyExists, err)
}

func TestDeleteIndex_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "DELETE" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"acknowledged": true}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	indexer := newTestIndexer(server.URL)
	err := indexer.DeleteIndex(context.Background(), "test-index")
	assert.NoError(t, err)
}

func TestDeleteIndex_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	indexer := newTestIndexer(server.URL)
	err := indexer.DeleteIndex(context.Background(), "test-index")
	assert.Error(t, err)
	assert.Equal(t, ErrIndexNotFound, err)
}

func TestIndexLogLine_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "PUT" && strings.Contains(r.URL.Path, "/_doc/") {
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), "step completed")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"_id": "1", "result": "created"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	indexer := newTestIndexer(server.URL)
	err := indexer.IndexLogLine(context.Background(), "1", testLogLine())
	assert.NoError(t, err)
}

func TestBulkIndexLogLines_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" && strings.Contains(r.URL.Path, "_bulk") {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"took": 30,
				"errors": false,
				"items": [
					{"index": {"_index": "test", "_id": "1", "status": 201}},
					{"index": {"_index": "test", "_id": "2", "status": 201}}
				]
			}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	indexer := newTestIndexer(server.URL)
	lines := map[string]LogLine{
		"1": testLogLine(),
		"2": testLogLine(),
	}
	result, err := indexer.BulkIndexLogLines(context.Background(), "run-1", lines)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
}

func TestBulkIndexLogLines_PartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" && strings.Contains(r.URL.Path, "_bulk") {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"took": 30,
				"errors": true,
				"items": [
					{"index": {"_index": "test", "_id": "1", "status": 201}},
					{"index": {"_index": "test", "_id": "2", "status": 400, "error": {"type": "mapper_parsing_exception", "reason": "failed"}}}
				]
			}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	indexer := newTestIndexer(server.URL)
	lines := map[string]LogLine{
		"1": testLogLine(),
		"2": testLogLine(),
	}
	result, err := indexer.BulkIndexLogLines(context.Background(), "run-1", lines)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "2", result.Errors[0].DocID)
}

func TestLogLineIndexMapping(t *testing.T) {
	m := LogLineIndexMapping()
	assert.NotNil(t, m.Mappings)
	assert.NotNil(t, m.Settings)

	props := m.Mappings["properties"].(map[string]interface{})
	assert.Contains(t, props, "run_id")
	assert.Contains(t, props, "rank")
	assert.Contains(t, props, "message")
}

func TestIndexNameForRun(t *testing.T) {
	indexer := newTestIndexer("http://localhost:9200")
	assert.Equal(t, "dissolve-runlog-run-1", indexer.IndexNameForRun("run-1"))
}
