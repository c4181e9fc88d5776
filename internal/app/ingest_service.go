package app

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"attachke/internal/domain/opportunity"
	"attachke/internal/integration/adzuna"
	"attachke/internal/integration/jooble"
)

// IngestService imports listings from external job feeds. Imports land in
// pending status so an admin vets them before they go live.
type IngestService struct {
	opportunities opportunity.Repository
	adzuna        *adzuna.Client
	jooble        *jooble.Client
	logger        *zap.SugaredLogger
}

func NewIngestService(opportunities opportunity.Repository, adzunaClient *adzuna.Client, joobleClient *jooble.Client, logger *zap.SugaredLogger) *IngestService {
	return &IngestService{
		opportunities: opportunities,
		adzuna:        adzunaClient,
		jooble:        joobleClient,
		logger:        logger,
	}
}

type SyncResult struct {
	Fetched  int `json:"fetched"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

const feedSearchTerms = "internship attachment"

// Imported listings have no real closing date; thirty days gives admins a
// review window before the listing expires out of the browse page.
const importedDeadline = 30 * 24 * time.Hour

func (s *IngestService) SyncAdzuna(ctx context.Context) (*SyncResult, error) {
	jobs, err := s.adzuna.Search(ctx, feedSearchTerms, 1, 50)
	if err != nil {
		return nil, err
	}
	result := &SyncResult{Fetched: len(jobs)}
	for _, job := range jobs {
		company := job.Company.DisplayName
		if company == "" {
			company = "Unknown Company"
		}
		imported, err := s.importListing(ctx, opportunity.Opportunity{
			Company:      company,
			Title:        strings.TrimSpace(job.Title),
			Description:  job.Description,
			Type:         inferType(job.Title),
			Category:     inferCategory(job.Title + " " + job.Description),
			Location:     orDefault(job.Location.DisplayName, "Kenya"),
			Duration:     "3-6 months",
			Requirements: extractRequirements(job.Description),
			Positions:    1,
			Deadline:     time.Now().Add(importedDeadline),
			ApplyURL:     job.RedirectURL,
			Source:       opportunity.SourceAdzuna,
		})
		if err != nil {
			s.logger.Warnw("failed to import adzuna listing", "title", job.Title, "error", err)
			continue
		}
		if imported {
			result.Imported++
		} else {
			result.Skipped++
		}
	}
	s.logger.Infow("adzuna sync finished", "fetched", result.Fetched, "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

func (s *IngestService) SyncJooble(ctx context.Context) (*SyncResult, error) {
	jobs, err := s.jooble.Search(ctx, feedSearchTerms, "Kenya")
	if err != nil {
		return nil, err
	}
	result := &SyncResult{Fetched: len(jobs)}
	for _, job := range jobs {
		description := stripTags(job.Snippet)
		imported, err := s.importListing(ctx, opportunity.Opportunity{
			Company:      orDefault(job.Company, "Unknown Company"),
			Title:        strings.TrimSpace(job.Title),
			Description:  description,
			Type:         inferType(job.Title),
			Category:     inferCategory(job.Title + " " + description),
			Location:     orDefault(job.Location, "Kenya"),
			Duration:     "3-6 months",
			Requirements: extractRequirements(description),
			Positions:    1,
			Deadline:     time.Now().Add(importedDeadline),
			ApplyURL:     job.Link,
			Source:       opportunity.SourceJooble,
		})
		if err != nil {
			s.logger.Warnw("failed to import jooble listing", "title", job.Title, "error", err)
			continue
		}
		if imported {
			result.Imported++
		} else {
			result.Skipped++
		}
	}
	s.logger.Infow("jooble sync finished", "fetched", result.Fetched, "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

// importListing deduplicates on title and company across both feeds, so a
// listing syndicated to Adzuna and Jooble is imported once.
func (s *IngestService) importListing(ctx context.Context, o opportunity.Opportunity) (bool, error) {
	if o.Title == "" {
		return false, nil
	}
	exists, err := s.opportunities.ExistsByTitleAndCompany(ctx, o.Title, o.Company)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	o.Status = opportunity.StatusPending
	if _, err := s.opportunities.Create(ctx, o); err != nil {
		return false, err
	}
	return true, nil
}

func inferType(title string) opportunity.Type {
	lower := strings.ToLower(title)
	hasInternship := strings.Contains(lower, "intern")
	hasAttachment := strings.Contains(lower, "attach")
	switch {
	case hasInternship && hasAttachment:
		return opportunity.TypeBoth
	case hasAttachment:
		return opportunity.TypeAttachment
	default:
		return opportunity.TypeInternship
	}
}

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"Technology", []string{"software", "developer", "engineer", "it ", "ict", "data", "tech"}},
	{"Finance", []string{"finance", "account", "audit", "bank", "tax"}},
	{"Marketing", []string{"marketing", "sales", "brand", "communication", "media"}},
	{"Healthcare", []string{"health", "medical", "nurse", "clinic", "pharma"}},
	{"Engineering", []string{"mechanical", "electrical", "civil", "construction"}},
	{"Legal", []string{"legal", "law", "advocate"}},
	{"Human Resources", []string{"human resource", "hr ", "recruitment"}},
	{"Hospitality", []string{"hotel", "hospitality", "tourism", "chef"}},
}

func inferCategory(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.category
			}
		}
	}
	return "General"
}

// extractRequirements pulls up to five short sentences that read like
// qualification lines out of a free-text description.
func extractRequirements(description string) []string {
	var requirements []string
	for _, sentence := range strings.Split(description, ".") {
		trimmed := strings.TrimSpace(sentence)
		if len(trimmed) < 15 || len(trimmed) > 160 {
			continue
		}
		lower := strings.ToLower(trimmed)
		if strings.Contains(lower, "require") || strings.Contains(lower, "must") ||
			strings.Contains(lower, "experience") || strings.Contains(lower, "degree") ||
			strings.Contains(lower, "diploma") || strings.Contains(lower, "skill") {
			requirements = append(requirements, trimmed)
		}
		if len(requirements) == 5 {
			break
		}
	}
	if len(requirements) == 0 {
		requirements = []string{"Currently enrolled in or recently graduated from a relevant program"}
	}
	return requirements
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// stripTags removes the highlight markup Jooble embeds in snippets.
func stripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

func orDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
