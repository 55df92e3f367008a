package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/signup-forms/internal/domain"
)

// ErrInvalidCursor is returned by List for a cursor that is not a request id.
var ErrInvalidCursor = errors.New("invalid cursor")

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// SignupRequestRepository persists storefront signup submissions.
type SignupRequestRepository interface {
	Create(ctx context.Context, req *domain.SignupRequest) error
	GetByID(ctx context.Context, storeHash, id string) (*domain.SignupRequest, error)
	LatestByEmail(ctx context.Context, storeHash, email string) (*domain.SignupRequest, error)
	List(ctx context.Context, storeHash string, filter domain.SignupRequestFilter) (domain.SignupRequestPage, error)
	UpdateStatus(ctx context.Context, storeHash, id string, status domain.SignupStatus) (*domain.SignupRequest, error)
	Resubmit(ctx context.Context, req *domain.SignupRequest) error
	Stats(ctx context.Context, storeHash string) (domain.SignupStats, error)
}

type signupRequestRepository struct {
	pool *pgxpool.Pool
}

// NewSignupRequestRepository returns a Postgres-backed implementation.
func NewSignupRequestRepository(pool *pgxpool.Pool) SignupRequestRepository {
	return &signupRequestRepository{pool: pool}
}

const signupRequestColumns = `id::text, store_hash, status, data, ip, origin, user_agent, resubmission_count, submitted_at, updated_at`

func (r *signupRequestRepository) Create(ctx context.Context, req *domain.SignupRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = domain.SignupStatusPending
	}
	if req.Data == nil {
		req.Data = map[string]any{}
	}
	const query = `
        INSERT INTO signup_requests (id, store_hash, status, data, email, ip, origin, user_agent)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING submitted_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		req.ID,
		req.StoreHash,
		req.Status,
		req.Data,
		req.ApplicantEmail(),
		req.IP,
		req.Origin,
		req.UserAgent,
	).Scan(&req.SubmittedAt, &req.UpdatedAt)
}

func (r *signupRequestRepository) GetByID(ctx context.Context, storeHash, id string) (*domain.SignupRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + signupRequestColumns + ` FROM signup_requests WHERE store_hash=$1 AND id=$2`
	return scanSignupRequest(r.pool.QueryRow(ctx, query, storeHash, id))
}

func (r *signupRequestRepository) LatestByEmail(ctx context.Context, storeHash, email string) (*domain.SignupRequest, error) {
	query := `SELECT ` + signupRequestColumns + `
        FROM signup_requests WHERE store_hash=$1 AND email=$2
        ORDER BY submitted_at DESC, id DESC LIMIT 1`
	return scanSignupRequest(r.pool.QueryRow(ctx, query, storeHash, strings.ToLower(email)))
}

// List pages newest first. The cursor is the id of the last item of the previous page.
func (r *signupRequestRepository) List(ctx context.Context, storeHash string, filter domain.SignupRequestFilter) (domain.SignupRequestPage, error) {
	query, args, pageSize, err := listQuery(storeHash, filter)
	if err != nil {
		return domain.SignupRequestPage{}, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.SignupRequestPage{}, err
	}
	defer rows.Close()

	items := make([]domain.SignupRequest, 0, pageSize)
	for rows.Next() {
		req, err := scanSignupRequest(rows)
		if err != nil {
			return domain.SignupRequestPage{}, err
		}
		items = append(items, *req)
	}
	if err := rows.Err(); err != nil {
		return domain.SignupRequestPage{}, err
	}

	page := domain.SignupRequestPage{Items: items}
	if len(items) > pageSize {
		page.Items = items[:pageSize]
		next := page.Items[pageSize-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

func (r *signupRequestRepository) UpdateStatus(ctx context.Context, storeHash, id string, status domain.SignupStatus) (*domain.SignupRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pgx.ErrNoRows
	}
	query := `
        UPDATE signup_requests SET status=$3, updated_at=NOW()
        WHERE store_hash=$1 AND id=$2
        RETURNING ` + signupRequestColumns
	return scanSignupRequest(r.pool.QueryRow(ctx, query, storeHash, id, status))
}

// Resubmit replaces the data of an existing request and puts it back in review.
func (r *signupRequestRepository) Resubmit(ctx context.Context, req *domain.SignupRequest) error {
	const query = `
        UPDATE signup_requests
        SET data=$3, ip=$4, origin=$5, user_agent=$6, status='pending',
            resubmission_count=resubmission_count+1, updated_at=NOW()
        WHERE store_hash=$1 AND id=$2
        RETURNING status, resubmission_count, updated_at`
	return r.pool.QueryRow(ctx, query,
		req.StoreHash,
		req.ID,
		req.Data,
		req.IP,
		req.Origin,
		req.UserAgent,
	).Scan(&req.Status, &req.ResubmissionCount, &req.UpdatedAt)
}

func (r *signupRequestRepository) Stats(ctx context.Context, storeHash string) (domain.SignupStats, error) {
	const query = `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE status='pending'),
            COUNT(*) FILTER (WHERE status='approved'),
            COUNT(*) FILTER (WHERE status='rejected'),
            COUNT(*) FILTER (WHERE status='moreInfo')
        FROM signup_requests WHERE store_hash=$1`
	var stats domain.SignupStats
	err := r.pool.QueryRow(ctx, query, storeHash).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Approved,
		&stats.Rejected,
		&stats.MoreInfo,
	)
	return stats, err
}

func scanSignupRequest(row pgx.Row) (*domain.SignupRequest, error) {
	var req domain.SignupRequest
	if err := row.Scan(
		&req.ID,
		&req.StoreHash,
		&req.Status,
		&req.Data,
		&req.IP,
		&req.Origin,
		&req.UserAgent,
		&req.ResubmissionCount,
		&req.SubmittedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

// listQuery builds the page query; it fetches one extra row to detect a next page.
// The cursor row must belong to the same store.
func listQuery(storeHash string, filter domain.SignupRequestFilter) (string, []any, int, error) {
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	args := []any{storeHash}
	conditions := []string{"store_hash=$1"}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Cursor != "" {
		if _, err := uuid.Parse(filter.Cursor); err != nil {
			return "", nil, 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		args = append(args, filter.Cursor)
		conditions = append(conditions, fmt.Sprintf(
			"(submitted_at, id) < (SELECT submitted_at, id FROM signup_requests WHERE id=$%d AND store_hash=$1)", len(args)))
	}
	args = append(args, pageSize+1)

	query := `SELECT ` + signupRequestColumns + ` FROM signup_requests WHERE ` +
		strings.Join(conditions, " AND ") +
		fmt.Sprintf(" ORDER BY submitted_at DESC, id DESC LIMIT $%d", len(args))
	return query, args, pageSize, nil
}
