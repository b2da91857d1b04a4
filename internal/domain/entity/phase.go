package entity

import (
	"fmt"
	"strings"
)

// Phase - фаза игрового цикла
type Phase string

const (
	PhaseIdle         Phase = "IDLE"
	PhaseIntro        Phase = "INTRO"
	PhaseActive       Phase = "ACTIVE"
	PhaseLocked       Phase = "LOCKED"
	PhaseDistribution Phase = "DISTRIBUTION"
	PhaseReveal       Phase = "REVEAL"
	PhaseRanking      Phase = "RANKING"

	// Фазы ниже существуют в хранилище ради совместимости со старыми клиентами.
	// В основной цикл они не входят, контроллер их не выставляет.
	PhaseReading   Phase = "READING"
	PhaseCountdown Phase = "COUNTDOWN"
	PhaseResult    Phase = "RESULT"
)

// phaseCycle задает порядок фаз одного раунда
var phaseCycle = []Phase{
	PhaseIdle,
	PhaseIntro,
	PhaseActive,
	PhaseLocked,
	PhaseDistribution,
	PhaseReveal,
	PhaseRanking,
}

// ParsePhase разбирает строку в фазу. Регистр не учитывается.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return p, nil
}

// IsValid проверяет, что значение является известной фазой
func (p Phase) IsValid() bool {
	switch p {
	case PhaseReading, PhaseCountdown, PhaseResult:
		return true
	}
	return p.InCycle()
}

// InCycle сообщает, входит ли фаза в основной цикл раунда
func (p Phase) InCycle() bool {
	for _, c := range phaseCycle {
		if c == p {
			return true
		}
	}
	return false
}

// Next возвращает следующую фазу цикла.
// Для RANKING возвращает false: выход в IDLE возможен только через выбывание.
func (p Phase) Next() (Phase, bool) {
	for i, c := range phaseCycle {
		if c != p {
			continue
		}
		if i+1 >= len(phaseCycle) {
			return "", false
		}
		return phaseCycle[i+1], true
	}
	return "", false
}

// AcceptsAnswers - только в ACTIVE ответы записываются
func (p Phase) AcceptsAnswers() bool {
	return p == PhaseActive
}

// ShowsDistribution - фазы, в которых экран показывает распределение ответов
func (p Phase) ShowsDistribution() bool {
	return p == PhaseDistribution || p == PhaseReveal
}

// RevealsAnswer - фазы, в которых правильный ответ можно отдавать клиентам
func (p Phase) RevealsAnswer() bool {
	return p == PhaseReveal || p == PhaseRanking
}

func (p Phase) String() string {
	return string(p)
}
