package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/survival-quiz/internal/handler/dto"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
	"github.com/yourusername/survival-quiz/internal/service"
)

// maxImportSize ограничивает размер загружаемого YAML
const maxImportSize = 2 << 20

// QuestionHandler управляет библиотекой вопросов
type QuestionHandler struct {
	questions *service.QuestionService
}

// NewQuestionHandler создает обработчик библиотеки вопросов
func NewQuestionHandler(questions *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

// ListQuestions возвращает всю библиотеку
// GET /api/questions
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	questions, err := h.questions.List(c.Request.Context())
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.QuestionListResponse{Questions: questions, Total: len(questions)})
}

// GetQuestion возвращает вопрос вместе с правильным ответом
// GET /api/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	question, err := h.questions.Get(c.Request.Context(), questionID)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// CreateQuestion добавляет вопрос
// POST /api/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	question, err := h.questions.Create(c.Request.Context(), req.ToEntity())
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// UpdateQuestion заменяет вопрос. Текущий вопрос во время раунда менять нельзя (409).
// PUT /api/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	question, err := h.questions.Update(c.Request.Context(), questionID, req.ToEntity())
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// DeleteQuestion удаляет вопрос
// DELETE /api/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	if err := h.questions.Delete(c.Request.Context(), questionID); err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": questionID})
}

// ImportQuestions загружает библиотеку из YAML: файл в поле file или тело запроса
// POST /api/questions/import
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	data, err := readImportBody(c)
	if err != nil {
		handleGameError(c, err)
		return
	}

	imported, err := h.questions.Import(c.Request.Context(), data)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ImportResponse{Success: true, Imported: imported})
}

func readImportBody(c *gin.Context) ([]byte, error) {
	var src io.Reader = c.Request.Body
	if c.ContentType() == "multipart/form-data" {
		file, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: multipart field file is required", apperrors.ErrValidation)
		}
		f, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open uploaded file: %w", err)
		}
		defer f.Close()
		src = f
	}

	data, err := io.ReadAll(io.LimitReader(src, maxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("read import body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty import body", apperrors.ErrValidation)
	}
	if len(data) > maxImportSize {
		return nil, fmt.Errorf("%w: import body exceeds %d bytes", apperrors.ErrValidation, maxImportSize)
	}
	return data, nil
}
