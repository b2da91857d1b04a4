package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
	"github.com/yourusername/survival-quiz/internal/repository/memory"
)

// ============================================================================
// Моки для ReportService
// ============================================================================

// MockMailerForReportService реализует Mailer
type MockMailerForReportService struct {
	mock.Mock
}

func (m *MockMailerForReportService) Send(ctx context.Context, mail Mail) error {
	args := m.Called(ctx, mail)
	return args.Error(0)
}

func seedStandings(t *testing.T, store *memory.Store) {
	t.Helper()
	players := []entity.Player{
		{DisplayName: "=HYPERLINK()", Score: 90, IsEligible: true},
		{DisplayName: "Боря", Score: 150, IsEligible: true},
		{DisplayName: "Вика", Score: 90, IsEligible: false},
	}
	for i := range players {
		require.NoError(t, store.Players.Create(context.Background(), &players[i]))
	}
}

// ============================================================================
// Тесты
// ============================================================================

func TestReportService_StandingsSharesRankOnTies(t *testing.T) {
	// Arrange
	store := memory.NewStore()
	seedStandings(t, store)
	svc := NewReportService(store.Players, nil, nil)

	// Act
	rows, err := svc.Standings(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Боря", rows[0].DisplayName)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 2, rows[1].Rank)
	assert.Equal(t, 2, rows[2].Rank, "Равные очки делят место")
}

func TestReportService_WriteCSV(t *testing.T) {
	// Arrange
	store := memory.NewStore()
	seedStandings(t, store)
	svc := NewReportService(store.Players, nil, nil)
	rows, err := svc.Standings(context.Background())
	require.NoError(t, err)

	// Act
	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(&buf, rows))

	// Assert
	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}), "Файл начинается с BOM")
	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, standingsHeaders, records[0])
	assert.Equal(t, "150", records[1][3])

	var sanitized bool
	for _, r := range records[1:] {
		if r[1] == "'=HYPERLINK()" {
			sanitized = true
		}
	}
	assert.True(t, sanitized, "Формула экранирована")
}

func TestReportService_WriteXLSX(t *testing.T) {
	// Arrange
	store := memory.NewStore()
	seedStandings(t, store)
	svc := NewReportService(store.Players, nil, nil)
	rows, err := svc.Standings(context.Background())
	require.NoError(t, err)

	// Act
	var buf bytes.Buffer
	require.NoError(t, svc.WriteXLSX(&buf, rows))

	// Assert
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	sheetRows, err := f.GetRows("Результаты")
	require.NoError(t, err)
	require.Len(t, sheetRows, 4)
	assert.Equal(t, "Место", sheetRows[0][0])
	assert.Equal(t, "Боря", sheetRows[1][1])
}

func TestReportService_EmailStandings(t *testing.T) {
	// Arrange
	store := memory.NewStore()
	seedStandings(t, store)
	mailer := &MockMailerForReportService{}
	recipients := []string{"host@example.com"}
	svc := NewReportService(store.Players, mailer, recipients)

	mailer.On("Send", mock.Anything, mock.MatchedBy(func(mail Mail) bool {
		att := mail.Attachments
		return assert.ObjectsAreEqual(recipients, mail.To) &&
			len(att) == 1 && att[0].ContentType == xlsxContentType && len(att[0].Content) > 0
	})).Return(nil)

	// Act
	count, err := svc.EmailStandings(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	mailer.AssertExpectations(t)
}

func TestReportService_EmailStandingsWithoutRecipients(t *testing.T) {
	svc := NewReportService(memory.NewStore().Players, &MockMailerForReportService{}, nil)

	_, err := svc.EmailStandings(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrValidation, "Без получателей отправка невозможна")
}
