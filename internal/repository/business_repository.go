package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/bizsearch/internal/database"
	"github.com/stwalsh4118/bizsearch/internal/models"
)

// ErrDuplicateFilingNumber is returned by Create when a business with the same
// filing number is already stored. Nothing is written in that case.
var ErrDuplicateFilingNumber = errors.New("business with this filing number already exists")

// BusinessRepository defines the interface for business data access operations.
type BusinessRepository interface {
	// Create inserts the business and its officers and filing history in one
	// transaction, filling in the generated ids and timestamps.
	// Returns ErrDuplicateFilingNumber if the filing number is taken.
	Create(ctx context.Context, business *models.Business) error

	// FindByName returns the first business (lowest id) whose name contains
	// name, ignoring case. Returns nil, nil if nothing matches.
	FindByName(ctx context.Context, name string) (*models.Business, error)

	// FindByID returns the business with the given id.
	// Returns nil, nil if it does not exist.
	FindByID(ctx context.Context, id int64) (*models.Business, error)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// businessRepository is the concrete implementation of BusinessRepository.
type businessRepository struct {
	db *database.Database
}

// NewBusinessRepository creates a new instance of BusinessRepository.
func NewBusinessRepository(db *database.Database) BusinessRepository {
	return &businessRepository{
		db: db,
	}
}

// Empty filing numbers are stored as NULL so they never collide.
const insertBusinessSQL = `
	INSERT INTO businesses (
		name,
		filing_number,
		status,
		filing_date,
		state_of_formation,
		principal_address,
		mailing_address,
		registered_agent_name,
		registered_agent_address
	)
	VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (filing_number) DO NOTHING
	RETURNING id, created_at, updated_at
`

const insertOfficerSQL = `
	INSERT INTO officers (business_id, name, title, address)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at
`

const insertFilingSQL = `
	INSERT INTO filing_history (business_id, filing_type, filing_date, document_url)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at
`

func (r *businessRepository) Create(ctx context.Context, business *models.Business) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertBusinessSQL,
			business.Name,
			business.FilingNumber,
			business.Status,
			business.FilingDate,
			business.StateOfFormation,
			business.PrincipalAddress,
			business.MailingAddress,
			business.RegisteredAgentName,
			business.RegisteredAgentAddress,
		).Scan(&business.ID, &business.CreatedAt, &business.UpdatedAt)
		if err != nil {
			// DO NOTHING returns no row on conflict
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrDuplicateFilingNumber
			}
			return fmt.Errorf("failed to insert business %q: %w", business.FilingNumber, err)
		}

		// Children go in after the parent row exists, in the same transaction.
		batch := &pgx.Batch{}
		for i := range business.Officers {
			officer := &business.Officers[i]
			officer.BusinessID = business.ID
			batch.Queue(insertOfficerSQL, business.ID, officer.Name, officer.Title, officer.Address).
				QueryRow(func(row pgx.Row) error {
					return row.Scan(&officer.ID, &officer.CreatedAt)
				})
		}
		for i := range business.FilingHistory {
			filing := &business.FilingHistory[i]
			filing.BusinessID = business.ID
			batch.Queue(insertFilingSQL, business.ID, filing.FilingType, filing.FilingDate, filing.DocumentURL).
				QueryRow(func(row pgx.Row) error {
					return row.Scan(&filing.ID, &filing.CreatedAt)
				})
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert children of business %d: %w", business.ID, err)
		}
		return nil
	})
	if err != nil {
		// A rolled back insert must not leave a stale id behind.
		business.ID = 0
		return err
	}
	return nil
}

const selectBusinessSQL = `
	SELECT
		id,
		name,
		COALESCE(filing_number, ''),
		COALESCE(status, ''),
		filing_date,
		COALESCE(state_of_formation, ''),
		COALESCE(principal_address, ''),
		COALESCE(mailing_address, ''),
		COALESCE(registered_agent_name, ''),
		COALESCE(registered_agent_address, ''),
		created_at,
		updated_at
	FROM businesses
`

// FindByName performs a case-insensitive substring match. LIKE wildcards in
// name are matched literally.
func (r *businessRepository) FindByName(ctx context.Context, name string) (*models.Business, error) {
	query := selectBusinessSQL + `
		WHERE name ILIKE $1 ESCAPE '\'
		ORDER BY id
		LIMIT 1
	`

	business, err := r.findOne(ctx, query, "%"+escapeLike(name)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to find business by name %q: %w", name, err)
	}
	return business, nil
}

func (r *businessRepository) FindByID(ctx context.Context, id int64) (*models.Business, error) {
	query := selectBusinessSQL + `
		WHERE id = $1
	`

	business, err := r.findOne(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find business %d: %w", id, err)
	}
	return business, nil
}

// findOne scans a single business row and attaches its children.
func (r *businessRepository) findOne(ctx context.Context, query string, args ...any) (*models.Business, error) {
	var b models.Business
	err := r.db.Pool.QueryRow(ctx, query, args...).Scan(
		&b.ID,
		&b.Name,
		&b.FilingNumber,
		&b.Status,
		&b.FilingDate,
		&b.StateOfFormation,
		&b.PrincipalAddress,
		&b.MailingAddress,
		&b.RegisteredAgentName,
		&b.RegisteredAgentAddress,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		// Handle no rows found - this is not an error at the repository level
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := loadChildren(ctx, r.db.Pool, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func loadChildren(ctx context.Context, q querier, b *models.Business) error {
	rows, err := q.Query(ctx, `
		SELECT id, business_id, name, COALESCE(title, ''), COALESCE(address, ''), created_at
		FROM officers
		WHERE business_id = $1
		ORDER BY id
	`, b.ID)
	if err != nil {
		return fmt.Errorf("failed to query officers: %w", err)
	}
	b.Officers, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Officer, error) {
		var o models.Officer
		err := row.Scan(&o.ID, &o.BusinessID, &o.Name, &o.Title, &o.Address, &o.CreatedAt)
		return o, err
	})
	if err != nil {
		return fmt.Errorf("failed to scan officers: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT id, business_id, COALESCE(filing_type, ''), filing_date, COALESCE(document_url, ''), created_at
		FROM filing_history
		WHERE business_id = $1
		ORDER BY id
	`, b.ID)
	if err != nil {
		return fmt.Errorf("failed to query filing history: %w", err)
	}
	b.FilingHistory, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.FilingEvent, error) {
		var f models.FilingEvent
		err := row.Scan(&f.ID, &f.BusinessID, &f.FilingType, &f.FilingDate, &f.DocumentURL, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return fmt.Errorf("failed to scan filing history: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
