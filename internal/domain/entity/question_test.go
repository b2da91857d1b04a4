package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func choice4Question() *Question {
	return &Question{
		ID:   1,
		Type: QuestionTypeChoice4,
		Text: "Столица Австралии?",
		Options: QuestionOptions{
			{ID: "a", Label: "Сидней"},
			{ID: "b", Label: "Канберра"},
			{ID: "c", Label: "Мельбурн"},
			{ID: "d", Label: "Перт"},
		},
		CorrectAnswer: CorrectAnswer{Choice: "b"},
		TimeLimitSec:  10,
	}
}

func sortQuestion() *Question {
	return &Question{
		ID:   2,
		Type: QuestionTypeSort,
		Text: "Расставьте по возрастанию",
		Options: QuestionOptions{
			{ID: "x", Label: "1"},
			{ID: "y", Label: "2"},
			{ID: "z", Label: "3"},
			{ID: "w", Label: "4"},
		},
		CorrectAnswer: CorrectAnswer{Order: []string{"x", "y", "z", "w"}},
		TimeLimitSec:  20,
	}
}

func TestQuestion_IsCorrect_Choice(t *testing.T) {
	// Arrange
	q := choice4Question()

	// Act & Assert
	assert.True(t, q.IsCorrect(AnswerValue{Choice: "b"}), "Правильный вариант должен засчитываться")
	assert.False(t, q.IsCorrect(AnswerValue{Choice: "a"}), "Неправильный вариант не должен засчитываться")
	assert.False(t, q.IsCorrect(AnswerValue{}), "Пустой ответ не должен засчитываться")
}

func TestQuestion_IsCorrect_SortRequiresExactSequence(t *testing.T) {
	// Arrange
	q := sortQuestion()

	// Act & Assert: то же множество в другом порядке - неверно
	assert.True(t, q.IsCorrect(AnswerValue{Order: []string{"x", "y", "z", "w"}}))
	assert.False(t, q.IsCorrect(AnswerValue{Order: []string{"y", "x", "z", "w"}}), "Сравнивается последовательность, а не множество")
	assert.False(t, q.IsCorrect(AnswerValue{Order: []string{"x", "y", "z"}}), "Неполный порядок неверен")
	assert.False(t, q.IsCorrect(AnswerValue{Choice: "x"}), "Для sort выбор варианта не считается")
}

func TestQuestion_CalculatePoints(t *testing.T) {
	// Arrange: лимит 10 секунд
	q := choice4Question()

	// Act & Assert
	assert.Equal(t, 100, q.CalculatePoints(true, 0), "Мгновенный ответ дает 100")
	assert.Equal(t, 75, q.CalculatePoints(true, 5000), "Половина лимита дает 75")
	assert.Equal(t, 50, q.CalculatePoints(true, 10000), "Граница лимита дает 50")
	assert.Equal(t, 50, q.CalculatePoints(true, 60000), "Опоздание ограничивается лимитом")
	assert.Equal(t, 99, q.CalculatePoints(true, 150), "Дробная часть отбрасывается")
	assert.Equal(t, 0, q.CalculatePoints(false, 0), "Неправильный ответ дает 0")
}

func TestQuestion_CalculatePoints_DefaultTimeLimit(t *testing.T) {
	// Arrange: лимит не задан, используется 10 секунд
	q := &Question{Type: QuestionTypeChoice2}

	// Act
	points := q.CalculatePoints(true, 5000)

	// Assert
	assert.Equal(t, 75, points)
	assert.Equal(t, DefaultTimeLimitSec, q.EffectiveTimeLimitSec())
}

func TestQuestion_Validate(t *testing.T) {
	require.NoError(t, choice4Question().Validate())
	require.NoError(t, sortQuestion().Validate())

	q := choice4Question()
	q.Options = q.Options[:3]
	assert.Error(t, q.Validate(), "choice4 требует 4 варианта")

	q = choice4Question()
	q.CorrectAnswer = CorrectAnswer{Choice: "zz"}
	assert.Error(t, q.Validate(), "Правильный ответ должен ссылаться на вариант")

	q = sortQuestion()
	q.CorrectAnswer = CorrectAnswer{Order: []string{"x", "x", "z", "w"}}
	assert.Error(t, q.Validate(), "Порядок не должен содержать повторов")

	q = choice4Question()
	q.Type = "poll"
	assert.Error(t, q.Validate(), "Неизвестный тип вопроса")
}

func TestQuestion_ValidateAnswer(t *testing.T) {
	q := choice4Question()
	assert.NoError(t, q.ValidateAnswer(AnswerValue{Choice: "a"}))
	assert.Error(t, q.ValidateAnswer(AnswerValue{Choice: "e"}))
	assert.Error(t, q.ValidateAnswer(AnswerValue{}))

	s := sortQuestion()
	assert.NoError(t, s.ValidateAnswer(AnswerValue{Order: []string{"w", "z", "y", "x"}}))
	assert.Error(t, s.ValidateAnswer(AnswerValue{Order: []string{"w", "z"}}))
}

func TestCorrectAnswer_JSONAcceptsStringAndArray(t *testing.T) {
	// Arrange
	var q Question
	raw := `{"id":5,"type":"sort","correct_answer":["b","a"]}`

	// Act
	err := json.Unmarshal([]byte(raw), &q)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, q.CorrectAnswer.Order)

	err = json.Unmarshal([]byte(`{"id":6,"type":"choice2","correct_answer":"yes"}`), &q)
	require.NoError(t, err)
	assert.Equal(t, "yes", q.CorrectAnswer.Choice)
	assert.Nil(t, q.CorrectAnswer.Order)

	out, err := json.Marshal(q.CorrectAnswer)
	require.NoError(t, err)
	assert.JSONEq(t, `"yes"`, string(out))
}

func TestOptionKey_UsesFirstOfOrder(t *testing.T) {
	assert.Equal(t, "c", OptionKey(AnswerValue{Order: []string{"c", "a"}}))
	assert.Equal(t, "b", OptionKey(AnswerValue{Choice: "b"}))
}
