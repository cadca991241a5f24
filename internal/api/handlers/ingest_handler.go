package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/ingestion"
	"github.com/mihir1816/teaching-content-generator/internal/pipeline"
	"github.com/mihir1816/teaching-content-generator/internal/source"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

type IngestHandler struct {
	pipeline *pipeline.Pipeline
}

func NewIngestHandler(p *pipeline.Pipeline) *IngestHandler {
	return &IngestHandler{pipeline: p}
}

// IngestSource accepts one source per request. Video transcripts and file
// text arrive pre-extracted; article HTML is extracted server-side.
func (h *IngestHandler) IngestSource(c *fiber.Ctx) error {
	var req struct {
		Kind     string `json:"kind"`
		Language string `json:"language"`

		// video
		VideoID    string `json:"video_id"`
		Transcript string `json:"transcript"`

		// article
		URL  string `json:"url"`
		HTML string `json:"html"`

		// file
		FileName string `json:"file_name"`
		Text     string `json:"text"`

		Title string `json:"title"`
	}
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var doc source.Document
	switch source.Kind(req.Kind) {
	case source.KindVideo:
		if req.VideoID == "" || req.Transcript == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "video_id and transcript are required",
			})
		}
		doc = source.FromVideo(req.VideoID, req.Title, req.Language, req.Transcript)

	case source.KindArticle:
		if req.URL == "" || req.HTML == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "url and html are required",
			})
		}
		text, err := ingestion.ExtractArticleText(req.HTML)
		if err != nil {
			return fail(c, "ingest_source", err)
		}
		doc = source.FromArticle(req.URL, req.Title, req.Language, text)

	case source.KindFile:
		if req.Text == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "text is required",
			})
		}
		doc = source.FromFile(req.FileName, req.Language, req.Text)

	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "kind must be one of: video, article, file",
		})
	}

	res, err := h.pipeline.Ingest(c.Context(), c.Params("sessionID"), doc)
	if err != nil {
		return fail(c, "ingest_source", err)
	}

	ok("ingest_source")
	return c.Status(fiber.StatusCreated).JSON(res)
}
