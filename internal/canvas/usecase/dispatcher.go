package usecase

import (
	"context"
	"encoding/base64"

	"canvas-mirror-backend/pkg/embedder"
	"canvas-mirror-backend/pkg/extractor"
)

// dispatcher implements Dispatcher on the extraction and embedding
// collaborator clients. Extraction is synchronous and its failure is the
// caller's to tally; the embedding trigger is best-effort with bounded
// retries inside the embedder client.
type dispatcher struct {
	extractorClient *extractor.Client
	embedderClient  *embedder.Client
}

func NewDispatcher(extractorClient *extractor.Client, embedderClient *embedder.Client) Dispatcher {
	return &dispatcher{
		extractorClient: extractorClient,
		embedderClient:  embedderClient,
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, req DispatchRequest) error {
	extractReq := extractor.ExtractRequest{
		Filename:    req.Filename,
		DocID:       req.DocID,
		BearerToken: req.BearerToken,
		Context:     req.Context,
	}
	if len(req.InlineData) > 0 {
		extractReq.InlineData = base64.StdEncoding.EncodeToString(req.InlineData)
	} else {
		extractReq.URL = req.PayloadURL
	}

	if err := d.extractorClient.Extract(ctx, extractReq); err != nil {
		return err
	}

	// Embeddings may lag ingestion; exhausted retries are logged by the
	// client, never surfaced as a dispatch failure.
	d.embedderClient.Trigger(ctx, req.DocID)
	return nil
}
