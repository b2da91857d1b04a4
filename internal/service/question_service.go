package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
	"github.com/yourusername/survival-quiz/internal/service/gamecore"
)

// QuestionSeed - вопрос в YAML-файле библиотеки
type QuestionSeed struct {
	Type          entity.QuestionType     `yaml:"type"`
	Text          string                  `yaml:"text"`
	MediaURL      string                  `yaml:"media_url"`
	MediaType     string                  `yaml:"media_type"`
	TimeLimitSec  int                     `yaml:"time_limit_sec"`
	Options       []entity.QuestionOption `yaml:"options"`
	CorrectAnswer entity.CorrectAnswer    `yaml:"correct_answer"`
}

type questionLibrary struct {
	Questions []QuestionSeed `yaml:"questions"`
}

// ParseQuestionsYAML разбирает библиотеку вопросов и проверяет каждый вопрос
func ParseQuestionsYAML(data []byte, defaultTimeLimitSec int) ([]entity.Question, error) {
	var lib questionLibrary
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("%w: invalid yaml: %v", apperrors.ErrValidation, err)
	}
	if len(lib.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions in file", apperrors.ErrValidation)
	}

	questions := make([]entity.Question, 0, len(lib.Questions))
	for i, seed := range lib.Questions {
		q := entity.Question{
			Type:          seed.Type,
			Text:          strings.TrimSpace(seed.Text),
			MediaURL:      seed.MediaURL,
			MediaType:     seed.MediaType,
			Options:       entity.QuestionOptions(seed.Options),
			CorrectAnswer: seed.CorrectAnswer,
			TimeLimitSec:  seed.TimeLimitSec,
		}
		if q.TimeLimitSec == 0 {
			q.TimeLimitSec = defaultTimeLimitSec
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", apperrors.ErrValidation, i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// QuestionService управляет библиотекой вопросов
type QuestionService struct {
	questionRepo repository.QuestionRepository
	controller   *GameController
	publisher    gamecore.Publisher
	config       *gamecore.Config
}

// NewQuestionService создает сервис вопросов
func NewQuestionService(
	questionRepo repository.QuestionRepository,
	controller *GameController,
	publisher gamecore.Publisher,
	config *gamecore.Config,
) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		controller:   controller,
		publisher:    publisher,
		config:       config,
	}
}

// List возвращает всю библиотеку
func (s *QuestionService) List(ctx context.Context) ([]entity.Question, error) {
	return s.questionRepo.List(ctx)
}

// Get возвращает вопрос по ID
func (s *QuestionService) Get(ctx context.Context, id uint) (*entity.Question, error) {
	return s.questionRepo.GetByID(ctx, id)
}

// Create добавляет вопрос в библиотеку
func (s *QuestionService) Create(ctx context.Context, q *entity.Question) (*entity.Question, error) {
	q.ID = 0
	if q.TimeLimitSec == 0 {
		q.TimeLimitSec = s.config.DefaultTimeLimitSec
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	s.notify(q.ID, false)
	return q, nil
}

// Update заменяет вопрос. Вопрос, идущий в раунде, менять нельзя.
func (s *QuestionService) Update(ctx context.Context, id uint, q *entity.Question) (*entity.Question, error) {
	q.ID = id
	if q.TimeLimitSec == 0 {
		q.TimeLimitSec = s.config.DefaultTimeLimitSec
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	err := s.controller.EditQuestion(ctx, id, func(ctx context.Context) (*entity.Question, error) {
		if err := s.questionRepo.Update(ctx, q); err != nil {
			return nil, err
		}
		return s.questionRepo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s.notify(id, false)
	return s.questionRepo.GetByID(ctx, id)
}

// Delete удаляет вопрос
func (s *QuestionService) Delete(ctx context.Context, id uint) error {
	err := s.controller.EditQuestion(ctx, id, func(ctx context.Context) (*entity.Question, error) {
		return nil, s.questionRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.notify(id, true)
	return nil
}

// Import загружает вопросы из YAML
func (s *QuestionService) Import(ctx context.Context, data []byte) (int, error) {
	questions, err := ParseQuestionsYAML(data, s.config.DefaultTimeLimitSec)
	if err != nil {
		return 0, err
	}
	if err := s.questionRepo.CreateBatch(ctx, questions); err != nil {
		return 0, fmt.Errorf("failed to import questions: %w", err)
	}
	log.Printf("[QuestionService] Импортировано вопросов: %d", len(questions))
	for _, q := range questions {
		s.notify(q.ID, false)
	}
	return len(questions), nil
}

func (s *QuestionService) notify(id uint, deleted bool) {
	s.publisher.Publish(gamecore.TopicQuestions, gamecore.EventQuestionUpdated, map[string]interface{}{
		"id":      id,
		"deleted": deleted,
	})
}
