package followup

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

// followupColumns includes the derived view_count so every read path carries
// it without a second query.
const followupColumns = `f.id, f.clinic_id, f.created_by, f.patient_name, f.phone,
	f.language, f.notes, f.due_date, f.status, f.public_token, f.created_at, f.updated_at,
	(SELECT COUNT(v.id) FROM public_view_log v WHERE v.followup_id = f.id) AS view_count`

const orderClause = ` ORDER BY f.due_date ASC, f.created_at DESC`

func (r *repoPG) Create(ctx context.Context, f *FollowUp) error {
	f.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO followup (
			id, clinic_id, created_by, patient_name, phone,
			language, notes, due_date, status, public_token
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		f.ID, f.ClinicID, f.CreatedBy, f.PatientName, f.Phone,
		f.Language, f.Notes, f.DueDate, f.Status, f.PublicToken,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, clinicID, id uuid.UUID) (*FollowUp, error) {
	return scanFollowUp(r.pool.QueryRow(ctx,
		`SELECT `+followupColumns+` FROM followup f WHERE f.id = $1 AND f.clinic_id = $2`,
		id, clinicID))
}

// Update persists the staff-editable fields. Clinic, creator and token are
// deliberately not in the SET list.
func (r *repoPG) Update(ctx context.Context, f *FollowUp) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE followup SET
			patient_name = $3, phone = $4, language = $5,
			notes = $6, due_date = $7, status = $8, updated_at = NOW()
		WHERE id = $1 AND clinic_id = $2
		RETURNING updated_at`,
		f.ID, f.ClinicID, f.PatientName, f.Phone, f.Language,
		f.Notes, f.DueDate, f.Status,
	).Scan(&f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, clinicID, id uuid.UUID, status Status) (*FollowUp, error) {
	_, err := r.pool.Exec(ctx, `
		UPDATE followup SET status = $3, updated_at = NOW()
		WHERE id = $1 AND clinic_id = $2`,
		id, clinicID, status,
	)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, clinicID, id)
}

// filterClauses appends WHERE fragments for the optional list filters,
// continuing the placeholder numbering from idx.
func filterClauses(filter ListFilter, idx int) (string, []interface{}, int) {
	var clause string
	var args []interface{}

	if filter.Status != nil {
		clause += fmt.Sprintf(` AND f.status = $%d`, idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.DueStart != nil {
		clause += fmt.Sprintf(` AND f.due_date >= $%d`, idx)
		args = append(args, *filter.DueStart)
		idx++
	}
	if filter.DueEnd != nil {
		clause += fmt.Sprintf(` AND f.due_date <= $%d`, idx)
		args = append(args, *filter.DueEnd)
		idx++
	}
	return clause, args, idx
}

func (r *repoPG) Count(ctx context.Context, clinicID uuid.UUID, filter ListFilter) (int, error) {
	query := `SELECT COUNT(*) FROM followup f WHERE f.clinic_id = $1`
	clause, args, _ := filterClauses(filter, 2)
	query += clause

	var total int
	err := r.pool.QueryRow(ctx, query, append([]interface{}{clinicID}, args...)...).Scan(&total)
	return total, err
}

func (r *repoPG) List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*FollowUp, error) {
	query := `SELECT ` + followupColumns + ` FROM followup f WHERE f.clinic_id = $1`
	clause, args, idx := filterClauses(filter, 2)
	query += clause + orderClause + fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	return r.queryFollowUps(ctx, query, append([]interface{}{clinicID}, args...)...)
}

func (r *repoPG) ListAll(ctx context.Context, clinicID uuid.UUID, filter ListFilter) ([]*FollowUp, error) {
	query := `SELECT ` + followupColumns + ` FROM followup f WHERE f.clinic_id = $1`
	clause, args, _ := filterClauses(filter, 2)
	query += clause + orderClause

	return r.queryFollowUps(ctx, query, append([]interface{}{clinicID}, args...)...)
}

func (r *repoPG) queryFollowUps(ctx context.Context, query string, args ...interface{}) ([]*FollowUp, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var followups []*FollowUp
	for rows.Next() {
		f, err := scanFollowUpRow(rows)
		if err != nil {
			return nil, err
		}
		followups = append(followups, f)
	}
	return followups, rows.Err()
}

func (r *repoPG) Summary(ctx context.Context, clinicID uuid.UUID) (*Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'done')
		FROM followup WHERE clinic_id = $1`, clinicID,
	).Scan(&s.Total, &s.Pending, &s.Done)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) GetByToken(ctx context.Context, token string) (*FollowUp, error) {
	return scanFollowUp(r.pool.QueryRow(ctx,
		`SELECT `+followupColumns+` FROM followup f WHERE f.public_token = $1`, token))
}

func (r *repoPG) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM followup WHERE public_token = $1)`, token).Scan(&exists)
	return exists, err
}

func (r *repoPG) AddViewLog(ctx context.Context, log *PublicViewLog) error {
	log.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO public_view_log (id, followup_id, user_agent, ip_address)
		VALUES ($1, $2, $3, $4)
		RETURNING viewed_at`,
		log.ID, log.FollowUpID, log.UserAgent, log.IPAddress,
	).Scan(&log.ViewedAt)
}

func scanFollowUp(row pgx.Row) (*FollowUp, error) {
	var f FollowUp
	err := row.Scan(
		&f.ID, &f.ClinicID, &f.CreatedBy, &f.PatientName, &f.Phone,
		&f.Language, &f.Notes, &f.DueDate, &f.Status, &f.PublicToken,
		&f.CreatedAt, &f.UpdatedAt, &f.ViewCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFollowUpRow(rows pgx.Rows) (*FollowUp, error) {
	var f FollowUp
	err := rows.Scan(
		&f.ID, &f.ClinicID, &f.CreatedBy, &f.PatientName, &f.Phone,
		&f.Language, &f.Notes, &f.DueDate, &f.Status, &f.PublicToken,
		&f.CreatedAt, &f.UpdatedAt, &f.ViewCount,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
