package entity

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// AnswerValue - ответ игрока: выбранный вариант или порядок для сортировки
type AnswerValue struct {
	Choice string   `json:"choice,omitempty"`
	Order  []string `json:"order,omitempty"`
}

// IsEmpty - ответ без выбора и без порядка
func (v AnswerValue) IsEmpty() bool {
	return v.Choice == "" && len(v.Order) == 0
}

// Scan реализует интерфейс sql.Scanner для AnswerValue
func (v *AnswerValue) Scan(value interface{}) error {
	if value == nil {
		*v = AnswerValue{}
		return nil
	}
	raw, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		*v = AnswerValue{}
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Value реализует интерфейс driver.Valuer для AnswerValue
func (v AnswerValue) Value() (driver.Value, error) {
	return json.Marshal(v)
}

// CorrectAnswer - правильный ответ вопроса.
// В JSON хранится строкой (id варианта) либо массивом (порядок id).
type CorrectAnswer struct {
	Choice string
	Order  []string
}

// MarshalJSON сериализует ответ в строку или массив
func (c CorrectAnswer) MarshalJSON() ([]byte, error) {
	if c.Order != nil {
		return json.Marshal(c.Order)
	}
	return json.Marshal(c.Choice)
}

// UnmarshalJSON принимает строку или массив строк
func (c *CorrectAnswer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = CorrectAnswer{}
		return nil
	}
	if trimmed[0] == '[' {
		var order []string
		if err := json.Unmarshal(trimmed, &order); err != nil {
			return err
		}
		*c = CorrectAnswer{Order: order}
		return nil
	}
	var choice string
	if err := json.Unmarshal(trimmed, &choice); err != nil {
		return err
	}
	*c = CorrectAnswer{Choice: choice}
	return nil
}

// MarshalYAML позволяет задавать правильный ответ в YAML так же, как в JSON
func (c CorrectAnswer) MarshalYAML() (interface{}, error) {
	if c.Order != nil {
		return c.Order, nil
	}
	return c.Choice, nil
}

// UnmarshalYAML принимает скаляр или последовательность
func (c *CorrectAnswer) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var order []string
	if err := unmarshal(&order); err == nil {
		*c = CorrectAnswer{Order: order}
		return nil
	}
	var choice string
	if err := unmarshal(&choice); err != nil {
		return err
	}
	*c = CorrectAnswer{Choice: choice}
	return nil
}

// IsEmpty - правильный ответ не задан
func (c CorrectAnswer) IsEmpty() bool {
	return c.Choice == "" && len(c.Order) == 0
}

// Scan реализует интерфейс sql.Scanner для CorrectAnswer
func (c *CorrectAnswer) Scan(value interface{}) error {
	if value == nil {
		*c = CorrectAnswer{}
		return nil
	}
	raw, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return c.UnmarshalJSON(raw)
}

// Value реализует интерфейс driver.Valuer для CorrectAnswer
func (c CorrectAnswer) Value() (driver.Value, error) {
	return c.MarshalJSON()
}

func jsonbBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("failed to unmarshal JSONB value: expected []byte")
	}
}
