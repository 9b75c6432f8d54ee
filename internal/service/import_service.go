package service

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/scolaplan/timetable-api/internal/models"
	appErrors "github.com/scolaplan/timetable-api/pkg/errors"
)

type importSlotCreator interface {
	Create(ctx context.Context, schoolID string, req CreateSlotRequest) (*models.Slot, error)
}

type importRosterReader interface {
	ListActive(ctx context.Context, schoolID string) ([]models.Teacher, error)
}

// Column synonym sets. Headers are normalized to lower-case letters only
// before matching, so "Heure début" and "heure_debut" both hit "heuredebut".
var importColumnSynonyms = map[string][]string{
	"day":     {"day", "jour", "weekday"},
	"start":   {"start", "debut", "heuredebut", "starttime", "heuredebutcours"},
	"end":     {"end", "fin", "heurefin", "endtime", "heurefincours"},
	"class":   {"class", "classe", "classgroup", "groupe", "niveau"},
	"subject": {"subject", "matiere", "cours", "discipline"},
	"teacher": {"teacher", "professeur", "prof", "enseignant", "intervenant"},
	"kind":    {"kind", "type", "typecours", "categorie"},
}

// ImportServiceConfig bounds import batches.
type ImportServiceConfig struct {
	MaxRows int
}

// ImportService reconciles loosely-typed spreadsheet rows into slot
// candidates and pushes them through the same validation and conflict path
// as manual creation.
type ImportService struct {
	slots  importSlotCreator
	roster importRosterReader
	logger *zap.Logger
	cfg    ImportServiceConfig
}

// NewImportService instantiates ImportService.
func NewImportService(slots importSlotCreator, roster importRosterReader, logger *zap.Logger, cfg ImportServiceConfig) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 500
	}
	return &ImportService{slots: slots, roster: roster, logger: logger, cfg: cfg}
}

// Reconcile normalizes raw rows into candidates, resolving free-text teacher
// names against the school's roster. Rows missing day, start time, or class
// group are dropped; an unresolved teacher keeps the raw text and is left for
// commit-time rejection rather than failing the whole batch here.
func (s *ImportService) Reconcile(ctx context.Context, schoolID string, rows []models.ImportRow) ([]models.ImportCandidate, error) {
	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	if len(rows) > s.cfg.MaxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, "import batch exceeds the allowed row count")
	}

	teachers, err := s.roster.ListActive(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher roster")
	}

	candidates := make([]models.ImportCandidate, 0, len(rows))
	for i, row := range rows {
		candidate := reconcileRow(row, teachers)
		candidate.SourceRow = i + 1

		day, dayOK := NormalizeDay(candidate.Day)
		if dayOK {
			candidate.Day = day
		}
		// Incomplete rows cannot be meaningfully validated later.
		if !dayOK || candidate.StartTime == "" || candidate.ClassGroup == "" {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// Commit pushes each candidate independently through validation and
// conflict-gated creation. Failures are counted per row and never abort the
// batch; candidates run sequentially so each conflict check sees the rows
// committed before it.
func (s *ImportService) Commit(ctx context.Context, schoolID string, candidates []models.ImportCandidate) (*models.ImportReport, error) {
	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}

	report := &models.ImportReport{}
	for _, candidate := range candidates {
		if !candidate.Resolved && candidate.RawTeacher != "" {
			report.Failed++
			report.Failures = append(report.Failures, models.ImportFailure{
				SourceRow: candidate.SourceRow,
				Code:      appErrors.ErrUnresolvedTeacher.Code,
				Message:   "teacher \"" + candidate.RawTeacher + "\" is not on the roster",
			})
			continue
		}

		req := CreateSlotRequest{
			Day:        candidate.Day,
			StartTime:  candidate.StartTime,
			EndTime:    candidate.EndTime,
			ClassGroup: candidate.ClassGroup,
			Subject:    candidate.Subject,
			TeacherID:  candidate.TeacherID,
			Kind:       candidate.Kind,
		}
		if _, err := s.slots.Create(ctx, schoolID, req); err != nil {
			appErr := appErrors.FromError(err)
			report.Failed++
			report.Failures = append(report.Failures, models.ImportFailure{
				SourceRow: candidate.SourceRow,
				Code:      appErr.Code,
				Message:   appErr.Message,
			})
			continue
		}
		report.Succeeded++
	}
	return report, nil
}

func reconcileRow(row models.ImportRow, teachers []models.Teacher) models.ImportCandidate {
	normalized := make(map[string]string, len(row))
	for header, value := range row {
		key := normalizeHeader(header)
		if existing, ok := normalized[key]; ok && existing != "" {
			continue
		}
		normalized[key] = strings.TrimSpace(value)
	}

	// Synonyms are matched in declaration order so a row carrying two headers
	// for the same field resolves the same way on every run.
	fields := make(map[string]string, len(importColumnSynonyms))
	for field, synonyms := range importColumnSynonyms {
		for _, synonym := range synonyms {
			if value := normalized[synonym]; value != "" {
				fields[field] = value
				break
			}
		}
	}

	candidate := models.ImportCandidate{
		Day:        fields["day"],
		StartTime:  fields["start"],
		EndTime:    fields["end"],
		ClassGroup: fields["class"],
		Subject:    fields["subject"],
		Kind:       normalizeKindValue(fields["kind"]),
		RawTeacher: fields["teacher"],
	}

	if candidate.RawTeacher != "" {
		if teacher := resolveTeacher(candidate.RawTeacher, teachers); teacher != nil {
			candidate.TeacherID = teacher.ID
			candidate.Resolved = true
		} else {
			candidate.TeacherID = candidate.RawTeacher
		}
	}
	return candidate
}

// normalizeHeader lower-cases a column header and strips everything that is
// not a letter.
func normalizeHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		switch r {
		case 'é', 'è', 'ê', 'ë':
			b.WriteRune('e')
		case 'à', 'â':
			b.WriteRune('a')
		case 'î', 'ï':
			b.WriteRune('i')
		case 'ô':
			b.WriteRune('o')
		case 'û', 'ù':
			b.WriteRune('u')
		default:
			if unicode.IsLetter(r) {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func normalizeKindValue(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	if strings.Contains(value, "soir") || strings.Contains(value, "evening") {
		return string(models.SlotKindEvening)
	}
	return string(models.SlotKindReinforcement)
}

// resolveTeacher matches free-text against the roster: exact or substring
// match of "first last" (case-insensitive), falling back to a substring
// match of the last name alone.
func resolveTeacher(raw string, teachers []models.Teacher) *models.Teacher {
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "" {
		return nil
	}

	for i := range teachers {
		full := strings.ToLower(teachers[i].FirstName + " " + teachers[i].LastName)
		if full == needle || strings.Contains(needle, full) || strings.Contains(full, needle) {
			return &teachers[i]
		}
	}
	for i := range teachers {
		last := strings.ToLower(teachers[i].LastName)
		if last != "" && strings.Contains(needle, last) {
			return &teachers[i]
		}
	}
	return nil
}
