package source

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies what kind of upstream producer a document came from.
type Kind string

const (
	KindVideo   Kind = "video"
	KindArticle Kind = "article"
	KindFile    Kind = "file"
)

func (k Kind) Valid() bool {
	switch k {
	case KindVideo, KindArticle, KindFile:
		return true
	}
	return false
}

// Document is raw extracted text plus the metadata the pipeline needs.
// Extraction itself happens upstream; the document is immutable once built.
type Document struct {
	Kind     Kind
	Key      string
	Title    string
	Language string
	Text     string
}

// Namespace derives the vector index isolation scope for this document.
// One source, one namespace; similarity search never crosses it.
func (d Document) Namespace() string {
	return fmt.Sprintf("%s:%s", d.Kind, d.Key)
}

// FromVideo builds a Document for a transcript keyed by video id.
func FromVideo(videoID, title, language, text string) Document {
	return Document{
		Kind:     KindVideo,
		Key:      videoID,
		Title:    title,
		Language: language,
		Text:     text,
	}
}

// FromArticle builds a Document for a scraped article. The key is the host
// plus a short hash of the full URL so two articles on the same site stay
// distinct while the key remains stable across re-ingestion.
func FromArticle(rawURL, title, language, text string) Document {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = strings.TrimPrefix(u.Host, "www.")
	}
	return Document{
		Kind:     KindArticle,
		Key:      fmt.Sprintf("%s:%s", host, shortHash(rawURL)),
		Title:    title,
		Language: language,
		Text:     text,
	}
}

// FromFile builds a Document for an uploaded file, keyed by content hash so
// uploading the same bytes twice lands in the same namespace.
func FromFile(fileName, language, text string) Document {
	return Document{
		Kind:     KindFile,
		Key:      shortHash(text),
		Title:    fileName,
		Language: language,
		Text:     text,
	}
}

func shortHash(input string) string {
	sum := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", sum)[:16]
}
