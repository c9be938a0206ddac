package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

var (
	ErrIndexAlreadyExists  = errors.New(errors.ErrCodeConflict, "index already exists")
	ErrIndexNotFound       = errors.New(errors.ErrCodeNotFound, "index not found")
	ErrIndexCreationFailed = errors.New(errors.ErrCodeInternal, "index creation failed")
	ErrDocumentIndexFailed = errors.New(errors.ErrCodeInternal, "document index failed")
	ErrDocumentNotFound    = errors.New(errors.ErrCodeNotFound, "indexed document not found")
	ErrMappingConflict     = errors.New(errors.ErrCodeConflict, "mapping conflict")
)

// GlossaryIndex is the bare name of the glossary term index; the client's
// configured prefix is prepended at call sites via Client.IndexName.
const GlossaryIndex = "glossary"

// TermDocument is the indexed representation of a glossary entry. Definition
// texts are flattened so a single full-text field covers them.
type TermDocument struct {
	ID          string    `json:"id"`
	Term        string    `json:"term"`
	Normalized  string    `json:"normalized"`
	Language    string    `json:"language"`
	Frequency   int       `json:"frequency"`
	Confidence  float64   `json:"confidence"`
	Method      string    `json:"method"`
	Definitions []string  `json:"definitions,omitempty"`
	DocumentIDs []string  `json:"document_ids,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TermDocumentFromDTO flattens a TermDTO into its indexed form.
func TermDocumentFromDTO(dto gtypes.TermDTO) TermDocument {
	doc := TermDocument{
		ID:         string(dto.ID),
		Term:       dto.Term,
		Normalized: dto.Normalized,
		Language:   dto.Language,
		Frequency:  dto.Frequency,
		Confidence: dto.Confidence,
		Method:     string(dto.Method),
		UpdatedAt:  dto.UpdatedAt,
	}
	for _, def := range dto.Definitions {
		doc.Definitions = append(doc.Definitions, def.Text)
	}
	for _, id := range dto.DocumentIDs {
		doc.DocumentIDs = append(doc.DocumentIDs, string(id))
	}
	return doc
}

// IndexerConfig holds configuration for the Indexer.
type IndexerConfig struct {
	BulkBatchSize int
	RefreshPolicy string
}

// Indexer manages index lifecycle and document ingestion.
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
	if cfg.RefreshPolicy == "" {
		cfg.RefreshPolicy = "false"
	}
	return &Indexer{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// EnsureGlossaryIndex creates the glossary index if it does not exist yet.
func (i *Indexer) EnsureGlossaryIndex(ctx context.Context) error {
	name := i.client.IndexName(GlossaryIndex)
	err := i.CreateIndex(ctx, name, GlossaryIndexMapping())
	if errors.Is(err, ErrIndexAlreadyExists) {
		return nil
	}
	return err
}

// CreateIndex creates a new index with the given mapping.
func (i *Indexer) CreateIndex(ctx context.Context, indexName string, mapping common.IndexMapping) error {
	exists, err := i.IndexExists(ctx, indexName)
	if err != nil {
		return err
	}
	if exists {
		return ErrIndexAlreadyExists
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}

	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "create index request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return i.handleErrorResponse(resp, ErrIndexCreationFailed)
	}

	i.logger.Info("index created", logging.String("index", indexName))
	return nil
}

// DeleteIndex deletes an index.
func (i *Indexer) DeleteIndex(ctx context.Context, indexName string) error {
	req := opensearchapi.IndicesDeleteRequest{
		Index: []string{indexName},
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "delete index request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return ErrIndexNotFound
	}
	if resp.IsError() {
		return i.handleErrorResponse(resp, errors.New(errors.ErrCodeInternal, "delete index failed"))
	}

	i.logger.Warn("index deleted", logging.String("index", indexName))
	return nil
}

// IndexExists checks if an index exists.
func (i *Indexer) IndexExists(ctx context.Context, indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeExternalService, "check index existence failed")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	}
	return false, i.handleErrorResponse(resp, errors.New(errors.ErrCodeInternal, "check index existence failed"))
}

// IndexTerm indexes a single glossary term document.
func (i *Indexer) IndexTerm(ctx context.Context, doc TermDocument) error {
	return i.IndexDocument(ctx, i.client.IndexName(GlossaryIndex), doc.ID, doc)
}

// IndexDocument indexes a single document.
func (i *Indexer) IndexDocument(ctx context.Context, indexName string, docID string, document interface{}) error {
	body, err := json.Marshal(document)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal document")
	}

	req := opensearchapi.IndexRequest{
		Index:      indexName,
		DocumentID: docID,
		Body:       bytes.NewReader(body),
		Refresh:    i.config.RefreshPolicy,
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "index document request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return i.handleErrorResponse(resp, ErrDocumentIndexFailed)
	}
	return nil
}

// BulkIndexTerms indexes glossary term documents in batches.
func (i *Indexer) BulkIndexTerms(ctx context.Context, docs []TermDocument) (*common.BulkResult, error) {
	byID := make(map[string]interface{}, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}
	return i.BulkIndex(ctx, i.client.IndexName(GlossaryIndex), byID)
}

// BulkIndex indexes multiple documents in batches and reports per-document
// failures.
func (i *Indexer) BulkIndex(ctx context.Context, indexName string, documents map[string]interface{}) (*common.BulkResult, error) {
	result := &common.BulkResult{}
	if len(documents) == 0 {
		return result, nil
	}

	docIDs := make([]string, 0, len(documents))
	for id := range documents {
		docIDs = append(docIDs, id)
	}

	batchSize := i.config.BulkBatchSize
	for start := 0; start < len(docIDs); start += batchSize {
		end := start + batchSize
		if end > len(docIDs) {
			end = len(docIDs)
		}

		batchIDs := docIDs[start:end]
		var buf bytes.Buffer
		for _, id := range batchIDs {
			docBytes, err := json.Marshal(documents[id])
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, common.BulkItemError{
					DocID:     id,
					ErrorType: "serialization_error",
					Reason:    err.Error(),
				})
				continue
			}
			fmt.Fprintf(&buf, `{"index":{"_index":%q,"_id":%q}}`+"\n", indexName, id)
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
			return result, errors.Wrap(err, errors.ErrCodeExternalService, "bulk request failed")
		}

		batchErr := i.collectBulkOutcome(resp, batchIDs, result)
		resp.Body.Close()
		if batchErr != nil {
			return result, batchErr
		}
	}

	i.logger.Info("bulk index completed",
		logging.String("index", indexName),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed))
	return result, nil
}

func (i *Indexer) collectBulkOutcome(resp *opensearchapi.Response, batchIDs []string, result *common.BulkResult) error {
	if resp.IsError() {
		err := i.handleErrorResponse(resp, errors.New(errors.ErrCodeInternal, "bulk batch failed"))
		result.Failed += len(batchIDs)
		result.Errors = append(result.Errors, common.BulkItemError{
			DocID:     "batch",
			ErrorType: "http_error",
			Reason:    err.Error(),
		})
		return nil
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
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode bulk response")
	}

	if !bulkResp.Errors {
		result.Succeeded += len(bulkResp.Items)
		return nil
	}
	for _, item := range bulkResp.Items {
		// Each item holds a single action key (index/create/update/delete).
		for _, info := range item {
			if info.Status >= 200 && info.Status < 300 {
				result.Succeeded++
			} else {
				result.Failed++
				result.Errors = append(result.Errors, common.BulkItemError{
					DocID:     info.ID,
					ErrorType: info.Error.Type,
					Reason:    info.Error.Reason,
				})
			}
			break
		}
	}
	return nil
}

// DeleteTerm removes a glossary term document from the index.
func (i *Indexer) DeleteTerm(ctx context.Context, docID string) error {
	return i.DeleteDocument(ctx, i.client.IndexName(GlossaryIndex), docID)
}

// DeleteDocument deletes a document.
func (i *Indexer) DeleteDocument(ctx context.Context, indexName string, docID string) error {
	req := opensearchapi.DeleteRequest{
		Index:      indexName,
		DocumentID: docID,
		Refresh:    i.config.RefreshPolicy,
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "delete document request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return ErrDocumentNotFound
	}
	if resp.IsError() {
		return i.handleErrorResponse(resp, errors.New(errors.ErrCodeInternal, "delete document failed"))
	}
	return nil
}

// UpdateMapping updates the index mapping.
func (i *Indexer) UpdateMapping(ctx context.Context, indexName string, mapping map[string]interface{}) error {
	body, err := json.Marshal(mapping)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal mapping")
	}

	req := opensearchapi.IndicesPutMappingRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "update mapping request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == 400 || resp.StatusCode == 409 {
		return i.handleErrorResponse(resp, ErrMappingConflict)
	}
	if resp.IsError() {
		return i.handleErrorResponse(resp, errors.New(errors.ErrCodeInternal, "update mapping failed"))
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
		return errors.Wrapf(defaultErr, errors.ErrCodeInternal, "opensearch error: %s - %s", errResp.Error.Type, errResp.Error.Reason)
	}
	return errors.Wrapf(defaultErr, errors.ErrCodeInternal, "opensearch error status: %d", resp.StatusCode)
}

// GlossaryIndexMapping returns the mapping for the glossary term index. The
// term field carries a keyword subfield for exact filters and a completion
// subfield feeding the suggest endpoint.
func GlossaryIndexMapping() common.IndexMapping {
	return common.IndexMapping{
		Settings: map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 1,
		},
		Mappings: map[string]interface{}{
			"properties": map[string]interface{}{
				"term": map[string]interface{}{
					"type": "text",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{"type": "keyword"},
						"suggest": map[string]interface{}{"type": "completion"},
					},
				},
				"normalized":   map[string]interface{}{"type": "keyword"},
				"language":     map[string]interface{}{"type": "keyword"},
				"frequency":    map[string]interface{}{"type": "integer"},
				"confidence":   map[string]interface{}{"type": "float"},
				"method":       map[string]interface{}{"type": "keyword"},
				"definitions":  map[string]interface{}{"type": "text"},
				"document_ids": map[string]interface{}{"type": "keyword"},
				"updated_at":   map[string]interface{}{"type": "date"},
			},
		},
	}
}
