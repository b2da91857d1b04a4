package dto

import (
	"github.com/yourusername/survival-quiz/internal/domain/entity"
)

// QuestionRequest - создание или правка вопроса библиотеки
type QuestionRequest struct {
	Type          entity.QuestionType    `json:"type" binding:"required"`
	Text          string                 `json:"text" binding:"required"`
	MediaURL      string                 `json:"media_url"`
	MediaType     string                 `json:"media_type"`
	Options       entity.QuestionOptions `json:"options" binding:"required"`
	CorrectAnswer entity.CorrectAnswer   `json:"correct_answer"`
	TimeLimitSec  int                    `json:"time_limit_sec"`
}

// ToEntity переносит поля запроса в сущность
func (r *QuestionRequest) ToEntity() *entity.Question {
	return &entity.Question{
		Type:          r.Type,
		Text:          r.Text,
		MediaURL:      r.MediaURL,
		MediaType:     r.MediaType,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		TimeLimitSec:  r.TimeLimitSec,
	}
}

// QuestionListResponse - библиотека вопросов
type QuestionListResponse struct {
	Questions []entity.Question `json:"questions"`
	Total     int               `json:"total"`
}

// ImportResponse - итог импорта YAML
type ImportResponse struct {
	Success  bool `json:"success"`
	Imported int  `json:"imported"`
}
