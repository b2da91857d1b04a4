package gamecore

import (
	"github.com/yourusername/survival-quiz/internal/domain/entity"
)

// QuestionView - вопрос в том виде, в каком его видят клиенты.
// Правильный ответ заполняется только после раскрытия.
type QuestionView struct {
	ID            uint                   `json:"id"`
	Type          entity.QuestionType    `json:"type"`
	Text          string                 `json:"text"`
	MediaURL      string                 `json:"media_url,omitempty"`
	MediaType     string                 `json:"media_type,omitempty"`
	Options       entity.QuestionOptions `json:"options"`
	TimeLimitSec  int                    `json:"time_limit_sec"`
	CorrectAnswer *entity.CorrectAnswer  `json:"correct_answer,omitempty"`
}

// NewQuestionView строит представление вопроса
func NewQuestionView(q *entity.Question, reveal bool) *QuestionView {
	if q == nil {
		return nil
	}
	v := &QuestionView{
		ID:           q.ID,
		Type:         q.Type,
		Text:         q.Text,
		MediaURL:     q.MediaURL,
		MediaType:    q.MediaType,
		Options:      q.Options,
		TimeLimitSec: q.EffectiveTimeLimitSec(),
	}
	if reveal {
		answer := q.CorrectAnswer
		v.CorrectAnswer = &answer
	}
	return v
}

// StateView - состояние игры для рассылки клиентам
type StateView struct {
	Phase             entity.Phase  `json:"phase"`
	CurrentQuestionID *uint         `json:"current_question_id"`
	StartTimestamp    int64         `json:"start_timestamp"`
	Period            int           `json:"period"`
	ServerTime        int64         `json:"server_time"`
	Question          *QuestionView `json:"question,omitempty"`
}

// View строит представление снимка на момент serverTime
func (s *Snapshot) View(serverTime int64) StateView {
	return StateView{
		Phase:             s.State.Phase,
		CurrentQuestionID: s.State.CurrentQuestionID,
		StartTimestamp:    s.State.StartTimestamp,
		Period:            s.State.Period,
		ServerTime:        serverTime,
		Question:          NewQuestionView(s.Question, s.State.Phase.RevealsAnswer()),
	}
}
