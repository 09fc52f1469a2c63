package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/stwalsh4118/bizsearch/internal/logger"
	"github.com/stwalsh4118/bizsearch/internal/models"
	"github.com/stwalsh4118/bizsearch/internal/repository"
)

// Where search results came from.
const (
	SourceDatabase = "database"
	SourceCrawler  = "crawler"
)

// MaxNameLength matches the width of businesses.name.
const MaxNameLength = 255

// Service-level errors
var (
	ErrInvalidQuery       = errors.New("invalid business name")
	ErrBusinessNotFound   = errors.New("business not found")
	ErrCrawlerUnavailable = errors.New("crawler unavailable")
)

// Crawler fetches business records from the live registry. An error means
// the crawler could not run at all; an empty slice means nothing was found
// or the crawl failed part way.
type Crawler interface {
	Search(ctx context.Context, name string) ([]models.Business, error)
}

// SearchResult is the outcome of a name search. Businesses is never nil.
type SearchResult struct {
	Source     string
	Businesses []models.Business
}

// BusinessService defines the interface for business lookup operations.
type BusinessService interface {
	// Search returns the stored business matching name if there is one,
	// otherwise crawls the registry and stores what it finds.
	// Returns ErrInvalidQuery for blank or oversized names and
	// ErrCrawlerUnavailable when the crawler cannot start.
	Search(ctx context.Context, name string) (*SearchResult, error)

	// GetByID returns a stored business with its officers and filing history.
	// Returns ErrBusinessNotFound if it does not exist.
	GetByID(ctx context.Context, id int64) (*models.Business, error)
}

// businessService is the concrete implementation of BusinessService.
type businessService struct {
	repo    repository.BusinessRepository
	crawler Crawler
	log     *logger.Logger
}

// NewBusinessService creates a new instance of BusinessService.
func NewBusinessService(repo repository.BusinessRepository, crawler Crawler, log *logger.Logger) BusinessService {
	return &businessService{
		repo:    repo,
		crawler: crawler,
		log:     log,
	}
}

func (s *businessService) Search(ctx context.Context, name string) (*SearchResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		s.log.Warn("Empty business name provided", nil)
		return nil, fmt.Errorf("%w: name must not be blank", ErrInvalidQuery)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		s.log.Warn("Business name too long", logger.Fields{
			"length": utf8.RuneCountInString(name),
		})
		return nil, fmt.Errorf("%w: name must be at most %d characters", ErrInvalidQuery, MaxNameLength)
	}

	s.log.Info("Searching stored businesses", logger.Fields{
		"name": name,
	})

	stored, err := s.repo.FindByName(ctx, name)
	if err != nil {
		s.log.Error("Failed to query stored businesses", err, logger.Fields{
			"name": name,
		})
		return nil, fmt.Errorf("failed to query businesses: %w", err)
	}
	if stored != nil {
		s.log.Info("Business found in database", logger.Fields{
			"name":        name,
			"business_id": stored.ID,
		})
		return &SearchResult{Source: SourceDatabase, Businesses: []models.Business{*stored}}, nil
	}

	s.log.Info("Business not stored, crawling registry", logger.Fields{
		"name": name,
	})

	crawled, err := s.crawler.Search(ctx, name)
	if err != nil {
		s.log.Error("Crawler could not run", err, logger.Fields{
			"name": name,
		})
		return nil, fmt.Errorf("%w: %w", ErrCrawlerUnavailable, err)
	}

	businesses := make([]models.Business, 0, len(crawled))
	for i := range crawled {
		b := crawled[i]
		if err := s.repo.Create(ctx, &b); err != nil {
			if errors.Is(err, repository.ErrDuplicateFilingNumber) {
				s.log.Warn("Skipping already stored business", logger.Fields{
					"filing_number": b.FilingNumber,
				})
				businesses = append(businesses, b)
				continue
			}
			s.log.Error("Failed to store crawled business", err, logger.Fields{
				"filing_number": b.FilingNumber,
			})
			return nil, fmt.Errorf("failed to store business %q: %w", b.FilingNumber, err)
		}
		businesses = append(businesses, b)
	}

	s.log.Info("Crawl finished", logger.Fields{
		"name":  name,
		"count": len(businesses),
	})

	return &SearchResult{Source: SourceCrawler, Businesses: businesses}, nil
}

func (s *businessService) GetByID(ctx context.Context, id int64) (*models.Business, error) {
	s.log.Debug("Querying business by id", logger.Fields{
		"business_id": id,
	})

	business, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to query business", err, logger.Fields{
			"business_id": id,
		})
		return nil, fmt.Errorf("failed to query business: %w", err)
	}

	// Repository returns nil, nil when no business found - transform to domain error
	if business == nil {
		return nil, ErrBusinessNotFound
	}
	return business, nil
}
