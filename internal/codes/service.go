// Package codes manages code records: creation with a generated short code,
// lookup, listing, metadata edits and deletion. Scan counters are owned by
// the scan pipeline and never written here.
package codes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/sundayezeilo/scantrack/internal/errx"
	"github.com/sundayezeilo/scantrack/internal/metrics"
	"github.com/sundayezeilo/scantrack/internal/scan"
	"github.com/sundayezeilo/scantrack/sluggen"
)

const (
	DefaultCodeLength = 8
	MinCodeLength     = 4
	MaxURLLength      = 2048
	MaxTitleLength    = 200
	DefaultMaxRetries = 3
	DefaultTitle      = "Untitled QR Code"
	MaxSearchLength   = 200

	DefaultListLimit = 20
	MaxListLimit     = 100
	maxListPage      = math.MaxInt32/MaxListLimit + 1
)

// List orders.
const (
	SortNewest      = "newest"
	SortOldest      = "oldest"
	SortMostScanned = "most_scanned"
)

// ListQuery selects a slice of code records. Search matches a
// case-insensitive substring of the title, destination or short code.
type ListQuery struct {
	Search string
	Sort   string
	Limit  int
	Offset int
}

// Changes names the fields an update sets. Nil fields are left unchanged.
type Changes struct {
	DestinationURL *string
	Title          *string
	Description    *string
	Active         *bool
}

func (c Changes) empty() bool {
	return c.DestinationURL == nil && c.Title == nil && c.Description == nil && c.Active == nil
}

// Repository persists code records. Create fails with errx.Conflict when the
// short code is already taken.
type Repository interface {
	Create(ctx context.Context, code scan.Code) (scan.Code, error)
	FindByID(ctx context.Context, id uuid.UUID) (scan.Code, error)
	FindByShortCode(ctx context.Context, shortCode string) (scan.Code, error)
	// List returns the selected records and the number of records matching
	// the search.
	List(ctx context.Context, q ListQuery) ([]scan.Code, int64, error)
	Update(ctx context.Context, id uuid.UUID, c Changes) (scan.Code, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateRequest represents the parameters for creating a code record.
type CreateRequest struct {
	DestinationURL string
	Title          string
	Description    string
}

// ListRequest pages through code records. Zero Page and Limit take the
// defaults.
type ListRequest struct {
	Search string
	Sort   string
	Page   int
	Limit  int
}

// ListPage is one page of code records.
type ListPage struct {
	Codes []scan.Code
	Page  int
	Limit int
	Total int64
}

// Service defines the code record operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (scan.Code, error)
	Get(ctx context.Context, id uuid.UUID) (scan.Code, error)
	GetByShortCode(ctx context.Context, shortCode string) (scan.Code, error)
	List(ctx context.Context, req ListRequest) (ListPage, error)
	Update(ctx context.Context, id uuid.UUID, c Changes) (scan.Code, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo       Repository
	generator  sluggen.Generator
	codeLength int
	maxRetries int
	metrics    *metrics.Metrics
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	ShortCodeGenerator sluggen.Generator
	CodeLength         int
	MaxRetries         int // attempts when generating a unique short code (default: 3)
	Metrics            *metrics.Metrics
}

func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	gen := config.ShortCodeGenerator
	if gen == nil {
		gen = sluggen.NewHex()
	}

	length := config.CodeLength
	if length < MinCodeLength || length > scan.MaxShortCodeLength {
		length = DefaultCodeLength
	}

	retries := config.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}

	return &service{
		repo:       repo,
		generator:  gen,
		codeLength: length,
		maxRetries: retries,
		metrics:    config.Metrics,
	}
}

// Create stores a new active record under a freshly generated short code,
// retrying on collisions.
func (s *service) Create(ctx context.Context, req CreateRequest) (scan.Code, error) {
	const op = "codes.service.Create"

	if err := validateURL(req.DestinationURL); err != nil {
		return scan.Code{}, errx.E(op, errx.Invalid, err)
	}
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return scan.Code{}, errx.E(op, errx.Invalid, err)
	}

	for range s.maxRetries {
		shortCode, err := s.generator.Generate(s.codeLength)
		if err != nil {
			return scan.Code{}, errx.E(op, errx.Unavailable, err)
		}

		created, err := s.repo.Create(ctx, scan.Code{
			ShortCode:      shortCode,
			DestinationURL: req.DestinationURL,
			Title:          title,
			Description:    strings.TrimSpace(req.Description),
			Active:         true,
		})
		if err == nil {
			s.metrics.CodeCreated()
			return created, nil
		}

		if errx.KindOf(err) != errx.Conflict {
			return scan.Code{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	return scan.Code{}, errx.E(op, errx.Unavailable,
		errors.New("could not generate unique short code after retries"))
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (scan.Code, error) {
	const op = "codes.service.Get"

	code, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return scan.Code{}, errx.E(op, errx.KindOf(err), err)
	}
	return code, nil
}

func (s *service) GetByShortCode(ctx context.Context, shortCode string) (scan.Code, error) {
	const op = "codes.service.GetByShortCode"

	if shortCode == "" || len(shortCode) > scan.MaxShortCodeLength {
		return scan.Code{}, errx.E(op, errx.NotFound, fmt.Errorf("no code %q", shortCode))
	}
	code, err := s.repo.FindByShortCode(ctx, shortCode)
	if err != nil {
		return scan.Code{}, errx.E(op, errx.KindOf(err), err)
	}
	return code, nil
}

// List returns a page of records ordered by req.Sort, newest first by
// default.
func (s *service) List(ctx context.Context, req ListRequest) (ListPage, error) {
	const op = "codes.service.List"

	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	if page > maxListPage {
		return ListPage{}, errx.E(op, errx.Invalid, fmt.Errorf("page must be at most %d", maxListPage))
	}

	sort := req.Sort
	switch sort {
	case "":
		sort = SortNewest
	case SortNewest, SortOldest, SortMostScanned:
	default:
		return ListPage{}, errx.E(op, errx.Invalid,
			fmt.Errorf("sort must be one of %s, %s, %s", SortNewest, SortOldest, SortMostScanned))
	}

	search := strings.TrimSpace(req.Search)
	if len(search) > MaxSearchLength {
		return ListPage{}, errx.E(op, errx.Invalid, errors.New("search too long (max 200 characters)"))
	}

	list, total, err := s.repo.List(ctx, ListQuery{
		Search: search,
		Sort:   sort,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return ListPage{}, errx.E(op, errx.KindOf(err), err)
	}
	return ListPage{Codes: list, Page: page, Limit: limit, Total: total}, nil
}

// Update applies the non-nil fields of c. A blank title resets it to
// DefaultTitle.
func (s *service) Update(ctx context.Context, id uuid.UUID, c Changes) (scan.Code, error) {
	const op = "codes.service.Update"

	if c.empty() {
		return scan.Code{}, errx.E(op, errx.Invalid, errors.New("no fields to update"))
	}
	if c.DestinationURL != nil {
		if err := validateURL(*c.DestinationURL); err != nil {
			return scan.Code{}, errx.E(op, errx.Invalid, err)
		}
	}
	if c.Title != nil {
		title, err := normalizeTitle(*c.Title)
		if err != nil {
			return scan.Code{}, errx.E(op, errx.Invalid, err)
		}
		c.Title = &title
	}
	if c.Description != nil {
		desc := strings.TrimSpace(*c.Description)
		c.Description = &desc
	}

	code, err := s.repo.Update(ctx, id, c)
	if err != nil {
		return scan.Code{}, errx.E(op, errx.KindOf(err), err)
	}
	return code, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "codes.service.Delete"

	if err := s.repo.Delete(ctx, id); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return DefaultTitle, nil
	}
	if len(title) > MaxTitleLength {
		return "", errors.New("title too long (max 200 characters)")
	}
	return title, nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return errors.New("url too long (max 2048 characters)")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}
