package ingestion

import "context"

// Translator converts extracted text into the pipeline's working language.
// The pipeline calls it only when a document declares a different language.
type Translator interface {
	Translate(ctx context.Context, text, fromLang, toLang string) (string, error)
}

// NoopTranslator passes text through unchanged. The default until a real
// translation backend is wired in.
type NoopTranslator struct{}

func (NoopTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}
