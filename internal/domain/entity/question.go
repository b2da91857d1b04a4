package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTimeLimitSec - лимит времени, если у вопроса он не задан
const DefaultTimeLimitSec = 10

// QuestionType - тип вопроса
type QuestionType string

const (
	QuestionTypeChoice4 QuestionType = "choice4"
	QuestionTypeChoice2 QuestionType = "choice2"
	QuestionTypeSort    QuestionType = "sort"
)

// IsValid проверяет тип вопроса
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionTypeChoice4, QuestionTypeChoice2, QuestionTypeSort:
		return true
	}
	return false
}

// QuestionOption - вариант ответа
type QuestionOption struct {
	ID       string `json:"id" yaml:"id"`
	Label    string `json:"label" yaml:"label"`
	ImageURL string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Color    string `json:"color,omitempty" yaml:"color,omitempty"`
}

// QuestionOptions - пользовательский тип для хранения вариантов в JSONB
type QuestionOptions []QuestionOption

// Scan реализует интерфейс sql.Scanner для QuestionOptions
func (o *QuestionOptions) Scan(value interface{}) error {
	if value == nil {
		*o = QuestionOptions{}
		return nil
	}
	raw, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		*o = QuestionOptions{}
		return nil
	}
	return json.Unmarshal(raw, o)
}

// Value реализует интерфейс driver.Valuer для QuestionOptions
func (o QuestionOptions) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// Question - вопрос из библиотеки контента
type Question struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Type          QuestionType    `gorm:"size:20;not null" json:"type"`
	Text          string          `gorm:"size:500;not null" json:"text"`
	MediaURL      string          `gorm:"size:500;not null;default:''" json:"media_url,omitempty"`
	MediaType     string          `gorm:"size:20;not null;default:''" json:"media_type,omitempty"`
	Options       QuestionOptions `gorm:"type:jsonb;not null" json:"options"`
	CorrectAnswer CorrectAnswer   `gorm:"type:jsonb;not null" json:"correct_answer"`
	TimeLimitSec  int             `gorm:"not null;default:10" json:"time_limit_sec"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// EffectiveTimeLimitSec возвращает лимит времени с учетом значения по умолчанию
func (q *Question) EffectiveTimeLimitSec() int {
	if q.TimeLimitSec <= 0 {
		return DefaultTimeLimitSec
	}
	return q.TimeLimitSec
}

// TimeLimit возвращает лимит времени раунда
func (q *Question) TimeLimit() time.Duration {
	return time.Duration(q.EffectiveTimeLimitSec()) * time.Second
}

// HasOption проверяет, что вариант с таким id существует
func (q *Question) HasOption(id string) bool {
	for _, opt := range q.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// IsCorrect сравнивает ответ с правильным.
// Для sort порядок должен совпасть полностью, для выбора - id варианта.
func (q *Question) IsCorrect(v AnswerValue) bool {
	if q.Type == QuestionTypeSort {
		if len(v.Order) == 0 || len(v.Order) != len(q.CorrectAnswer.Order) {
			return false
		}
		for i := range v.Order {
			if v.Order[i] != q.CorrectAnswer.Order[i] {
				return false
			}
		}
		return true
	}
	return v.Choice != "" && v.Choice == q.CorrectAnswer.Choice
}

// CalculatePoints рассчитывает очки за ответ.
// Правильный ответ дает от 100 (мгновенно) до 50 (на границе лимита), неправильный - 0.
func (q *Question) CalculatePoints(isCorrect bool, latencyMs int64) int {
	if !isCorrect {
		return 0
	}
	limitMs := int64(q.EffectiveTimeLimitSec()) * 1000
	if latencyMs < 0 {
		latencyMs = 0
	}
	if latencyMs > limitMs {
		latencyMs = limitMs
	}
	return int(50 + 50*(limitMs-latencyMs)/limitMs)
}

// ValidateAnswer проверяет форму ответа для данного типа вопроса
func (q *Question) ValidateAnswer(v AnswerValue) error {
	if q.Type == QuestionTypeSort {
		if len(v.Order) != len(q.Options) {
			return fmt.Errorf("order must contain %d option ids", len(q.Options))
		}
		seen := make(map[string]struct{}, len(v.Order))
		for _, id := range v.Order {
			if !q.HasOption(id) {
				return fmt.Errorf("unknown option %q", id)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("option %q repeated", id)
			}
			seen[id] = struct{}{}
		}
		return nil
	}
	if v.Choice == "" {
		return fmt.Errorf("choice is required")
	}
	if !q.HasOption(v.Choice) {
		return fmt.Errorf("unknown option %q", v.Choice)
	}
	return nil
}

// Validate проверяет целостность вопроса перед сохранением
func (q *Question) Validate() error {
	if !q.Type.IsValid() {
		return fmt.Errorf("invalid question type %q", q.Type)
	}
	if q.Text == "" {
		return fmt.Errorf("text is required")
	}
	if q.TimeLimitSec < 0 {
		return fmt.Errorf("time_limit_sec must not be negative")
	}

	switch q.Type {
	case QuestionTypeChoice2:
		if len(q.Options) != 2 {
			return fmt.Errorf("choice2 requires exactly 2 options, got %d", len(q.Options))
		}
	case QuestionTypeChoice4:
		if len(q.Options) != 4 {
			return fmt.Errorf("choice4 requires exactly 4 options, got %d", len(q.Options))
		}
	case QuestionTypeSort:
		if len(q.Options) != 2 && len(q.Options) != 4 {
			return fmt.Errorf("sort requires 2 or 4 options, got %d", len(q.Options))
		}
	}

	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if opt.ID == "" {
			return fmt.Errorf("option id is required")
		}
		if _, dup := seen[opt.ID]; dup {
			return fmt.Errorf("duplicate option id %q", opt.ID)
		}
		seen[opt.ID] = struct{}{}
	}

	if q.Type == QuestionTypeSort {
		if q.CorrectAnswer.Order == nil {
			return fmt.Errorf("sort question requires correct order")
		}
		return q.ValidateAnswer(AnswerValue{Order: q.CorrectAnswer.Order})
	}
	if q.CorrectAnswer.Choice == "" {
		return fmt.Errorf("correct answer is required")
	}
	return q.ValidateAnswer(AnswerValue{Choice: q.CorrectAnswer.Choice})
}

// OptionKey возвращает вариант, по которому ответ попадает в распределение.
// Для sort учитывается первый элемент порядка.
func OptionKey(v AnswerValue) string {
	if len(v.Order) > 0 {
		return v.Order[0]
	}
	return v.Choice
}
