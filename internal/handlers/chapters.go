package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chaptershq/chapters/internal/services"
	"github.com/chaptershq/chapters/pkg/response"
)

// ChapterHandler exposes chapter publishing and reading.
type ChapterHandler struct {
	chapters *services.ChapterService
}

func NewChapterHandler(chapters *services.ChapterService) *ChapterHandler {
	return &ChapterHandler{chapters: chapters}
}

// POST /api/chapters
func (h *ChapterHandler) Publish(c *gin.Context) {
	var req services.PublishChapterInput
	if !bindAndValidate(c, &req) {
		return
	}

	chapter, balance, err := h.chapters.Publish(requestContext(c), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"chapter":    chapter,
		"open_pages": balance,
	})
}

// GET /api/chapters/:id
func (h *ChapterHandler) Get(c *gin.Context) {
	chapter, err := h.chapters.Get(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, chapter)
}

// GET /api/books/:userID/chapters
func (h *ChapterHandler) ListByAuthor(c *gin.Context) {
	chapters, err := h.chapters.ListByAuthor(requestContext(c), c.Param("userID"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, chapters, &response.Meta{Count: len(chapters)})
}
