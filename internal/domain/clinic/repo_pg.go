package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// -- Clinic Repository --

type clinicRepoPG struct {
	pool *pgxpool.Pool
}

func NewClinicRepo(pool *pgxpool.Pool) ClinicRepository {
	return &clinicRepoPG{pool: pool}
}

const clinicColumns = `id, name, clinic_code, created_at`

func (r *clinicRepoPG) Create(ctx context.Context, c *Clinic) error {
	c.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO clinic (id, name, clinic_code)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		c.ID, c.Name, c.ClinicCode,
	).Scan(&c.CreatedAt)
}

func (r *clinicRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return r.scanClinic(r.pool.QueryRow(ctx,
		`SELECT `+clinicColumns+` FROM clinic WHERE id = $1`, id))
}

func (r *clinicRepoPG) GetByCode(ctx context.Context, code string) (*Clinic, error) {
	return r.scanClinic(r.pool.QueryRow(ctx,
		`SELECT `+clinicColumns+` FROM clinic WHERE clinic_code = $1`, code))
}

func (r *clinicRepoPG) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM clinic WHERE clinic_code = $1)`, code).Scan(&exists)
	return exists, err
}

func (r *clinicRepoPG) scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	err := row.Scan(&c.ID, &c.Name, &c.ClinicCode, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// -- Staff Repository --

type staffRepoPG struct {
	pool *pgxpool.Pool
}

func NewStaffRepo(pool *pgxpool.Pool) StaffRepository {
	return &staffRepoPG{pool: pool}
}

func (r *staffRepoPG) CreateUser(ctx context.Context, u *StaffUser) error {
	u.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO staff_user (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		u.ID, u.Username, u.PasswordHash,
	).Scan(&u.CreatedAt)
}

func (r *staffRepoPG) GetUserByID(ctx context.Context, id uuid.UUID) (*StaffUser, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM staff_user WHERE id = $1`, id))
}

func (r *staffRepoPG) GetUserByUsername(ctx context.Context, username string) (*StaffUser, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM staff_user WHERE username = $1`, username))
}

func (r *staffRepoPG) scanUser(row pgx.Row) (*StaffUser, error) {
	var u StaffUser
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *staffRepoPG) CreateProfile(ctx context.Context, p *UserProfile) error {
	p.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_profile (id, user_id, clinic_id)
		VALUES ($1, $2, $3)`,
		p.ID, p.UserID, p.ClinicID,
	)
	return err
}

func (r *staffRepoPG) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	var p UserProfile
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, clinic_id FROM user_profile WHERE user_id = $1`, userID,
	).Scan(&p.ID, &p.UserID, &p.ClinicID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
