package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/survival-quiz/internal/domain/repository"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var standingsHeaders = []string{"Место", "Игрок", "Имя", "Очки", "В игре"}

// StandingRow - строка итоговой таблицы
type StandingRow struct {
	Rank        int       `json:"rank"`
	PlayerID    uuid.UUID `json:"player_id"`
	DisplayName string    `json:"display_name"`
	RealName    string    `json:"real_name"`
	Score       int       `json:"score"`
	IsEligible  bool      `json:"is_eligible"`
}

// ReportService выгружает итоги игры
type ReportService struct {
	playerRepo repository.PlayerRepository
	mailer     Mailer
	recipients []string
}

// NewReportService создает сервис отчетов
func NewReportService(playerRepo repository.PlayerRepository, mailer Mailer, recipients []string) *ReportService {
	if mailer == nil {
		mailer = NoopMailer{}
	}
	return &ReportService{
		playerRepo: playerRepo,
		mailer:     mailer,
		recipients: recipients,
	}
}

// Standings возвращает всех игроков по убыванию очков. Равные очки делят место.
func (s *ReportService) Standings(ctx context.Context) ([]StandingRow, error) {
	players, err := s.playerRepo.ListStandings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load standings: %w", err)
	}

	rows := make([]StandingRow, 0, len(players))
	rank := 0
	for i, p := range players {
		if i == 0 || p.Score != players[i-1].Score {
			rank = i + 1
		}
		rows = append(rows, StandingRow{
			Rank:        rank,
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			RealName:    p.RealName,
			Score:       p.Score,
			IsEligible:  p.IsEligible,
		})
	}
	return rows, nil
}

// WriteCSV пишет итоги в CSV с BOM для Excel
func (s *ReportService) WriteCSV(w io.Writer, rows []StandingRow) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(standingsHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write([]string{
			strconv.Itoa(r.Rank),
			sanitizeForExcel(r.DisplayName),
			sanitizeForExcel(r.RealName),
			strconv.Itoa(r.Score),
			yesNo(r.IsEligible),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX пишет итоги в Excel через StreamWriter
func (s *ReportService) WriteXLSX(w io.Writer, rows []StandingRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Результаты"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	headers := make([]interface{}, len(standingsHeaders))
	for i, h := range standingsHeaders {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}

	for i, r := range rows {
		rowNum := i + 2
		row := []interface{}{r.Rank, sanitizeForExcel(r.DisplayName), sanitizeForExcel(r.RealName), r.Score, yesNo(r.IsEligible)}
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), row); err != nil {
			return fmt.Errorf("write row %d: %w", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}

// EmailStandings отправляет итоги настроенным получателям вложением xlsx
func (s *ReportService) EmailStandings(ctx context.Context) (int, error) {
	if len(s.recipients) == 0 {
		return 0, fmt.Errorf("%w: no report recipients configured", apperrors.ErrValidation)
	}

	rows, err := s.Standings(ctx)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := s.WriteXLSX(&buf, rows); err != nil {
		return 0, fmt.Errorf("build xlsx: %w", err)
	}

	date := time.Now().Format("2006-01-02")
	mail := Mail{
		To:      s.recipients,
		Subject: fmt.Sprintf("Итоги игры %s", date),
		Text:    fmt.Sprintf("Игроков: %d. Таблица во вложении.", len(rows)),
		Attachments: []MailAttachment{{
			Filename:    fmt.Sprintf("standings_%s.xlsx", date),
			ContentType: xlsxContentType,
			Content:     buf.Bytes(),
		}},
	}

	if err := s.mailer.Send(ctx, mail); err != nil {
		return 0, fmt.Errorf("send standings: %w", err)
	}
	log.Printf("[ReportService] Итоги отправлены: получателей %d, игроков %d", len(s.recipients), len(rows))
	return len(rows), nil
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "Да"
	}
	return "Нет"
}
