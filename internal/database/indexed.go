package database

import (
	"context"
)

// IndexedWriter keeps a FingerprintIndex in step with a FingerprintWriter.
// Only prints of one model are indexed; the index is cosine based and
// mixing models would compare unrelated vectors.
type IndexedWriter struct {
	FingerprintWriter
	index *FingerprintIndex
	model string
}

// NewIndexedWriter wraps w so that saved prints of model are added to index
func NewIndexedWriter(w FingerprintWriter, index *FingerprintIndex, model string) *IndexedWriter {
	return &IndexedWriter{FingerprintWriter: w, index: index, model: model}
}

// Load builds the index from every stored print of the model
func (w *IndexedWriter) Load(ctx context.Context) (int, error) {
	prints, err := w.List(ctx, w.model)
	if err != nil {
		return 0, err
	}
	w.index.Build(prints)
	return len(prints), nil
}

// Save stores fp and indexes it on success
func (w *IndexedWriter) Save(ctx context.Context, fp StoredFingerprint) error {
	if err := w.FingerprintWriter.Save(ctx, fp); err != nil {
		return err
	}
	if fp.Model == w.model {
		w.index.Add(fp)
	}
	return nil
}
