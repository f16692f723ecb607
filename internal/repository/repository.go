package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/venyaka/Bank-REST/internal/models"
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user and its role rows in one transaction.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bank.users (first_name, last_name, email, password_hash, email_verified, verify_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, query,
		user.FirstName, user.LastName, user.Email, user.PasswordHash, user.EmailVerified, nullable(user.VerifyToken)).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	for _, role := range user.Roles.Names() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bank.user_roles (user_id, role) VALUES ($1, $2)`, user.ID, role); err != nil {
			return fmt.Errorf("failed to store user role: %w", err)
		}
	}

	return tx.Commit()
}

// FindUserByEmail retrieves a user by email with its roles.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, `WHERE email = $1`, email)
}

// FindUserByID retrieves a user by id with its roles.
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findUser(ctx, `WHERE id = $1`, id)
}

func (r *Repository) findUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	var verifyToken, refreshSeq sql.NullString
	query := `
		SELECT id, first_name, last_name, email, password_hash, email_verified, verify_token, refresh_seq, created_at, updated_at
		FROM bank.users ` + where
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash,
			&user.EmailVerified, &verifyToken, &refreshSeq, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	user.VerifyToken = verifyToken.String
	user.RefreshSeq = refreshSeq.String

	if user.Roles, err = r.loadRoles(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) loadRoles(ctx context.Context, userID int64) (models.RoleSet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role FROM bank.user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	roles := models.NewRoleSet()
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles[models.Role(role)] = struct{}{}
	}
	return roles, rows.Err()
}

// FindAllUsers retrieves every user with their roles.
func (r *Repository) FindAllUsers(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT id, first_name, last_name, email, password_hash, email_verified, verify_token, refresh_seq, created_at, updated_at
		FROM bank.users
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		var verifyToken, refreshSeq sql.NullString
		if err := rows.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash,
			&user.EmailVerified, &verifyToken, &refreshSeq, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.VerifyToken = verifyToken.String
		user.RefreshSeq = refreshSeq.String
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, user := range users {
		var err error
		if user.Roles, err = r.loadRoles(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// SaveUser updates the user's mutable fields and rewrites its role rows in
// one transaction.
func (r *Repository) SaveUser(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE bank.users
		SET first_name = $2, last_name = $3, password_hash = $4, email_verified = $5, verify_token = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.PasswordHash, user.EmailVerified, nullable(user.VerifyToken)); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bank.user_roles WHERE user_id = $1`, user.ID); err != nil {
		return fmt.Errorf("failed to clear user roles: %w", err)
	}
	for _, role := range user.Roles.Names() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bank.user_roles (user_id, role) VALUES ($1, $2)`, user.ID, role); err != nil {
			return fmt.Errorf("failed to store user role: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteUser removes a user and its role rows in one transaction.
func (r *Repository) DeleteUser(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bank.user_roles WHERE user_id = $1`, user.ID); err != nil {
		return fmt.Errorf("failed to delete user roles: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bank.users WHERE id = $1`, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return tx.Commit()
}

// SetRefreshSequence stores a rotation sequence unconditionally; an empty
// sequence is persisted as NULL (logout).
func (r *Repository) SetRefreshSequence(ctx context.Context, email, seq string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bank.users SET refresh_seq = $2, updated_at = CURRENT_TIMESTAMP WHERE email = $1`,
		email, nullable(seq))
	if err != nil {
		return fmt.Errorf("failed to set refresh sequence: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// SwapRefreshSequence performs the rotation compare-and-swap in a single
// UPDATE: the new sequence is written only if the stored one still equals
// oldSeq. A concurrent rotation that committed first makes this a no-op.
func (r *Repository) SwapRefreshSequence(ctx context.Context, email, oldSeq, newSeq string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bank.users
		 SET refresh_seq = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE email = $1 AND refresh_seq IS NOT DISTINCT FROM NULLIF($2, '')`,
		email, oldSeq, nullable(newSeq))
	if err != nil {
		return false, fmt.Errorf("failed to swap refresh sequence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// CreateCard creates a new card row.
func (r *Repository) CreateCard(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO bank.cards (owner_id, card_number, expire_date, status, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		card.OwnerID, card.Number, card.ExpireDate, card.Status, card.Balance).
		Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// FindCardByID retrieves a card by id.
func (r *Repository) FindCardByID(ctx context.Context, id int64) (*models.Card, error) {
	card := &models.Card{}
	query := `
		SELECT id, owner_id, card_number, expire_date, status, balance, created_at, updated_at
		FROM bank.cards
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&card.ID, &card.OwnerID, &card.Number, &card.ExpireDate, &card.Status, &card.Balance, &card.CreatedAt, &card.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}

// FindCardsByOwner retrieves all cards belonging to a user.
func (r *Repository) FindCardsByOwner(ctx context.Context, ownerID int64) ([]*models.Card, error) {
	return r.findCards(ctx, `WHERE owner_id = $1 ORDER BY id`, ownerID)
}

// FindAllCards retrieves every card.
func (r *Repository) FindAllCards(ctx context.Context) ([]*models.Card, error) {
	return r.findCards(ctx, `ORDER BY id`)
}

func (r *Repository) findCards(ctx context.Context, tail string, args ...interface{}) ([]*models.Card, error) {
	query := `
		SELECT id, owner_id, card_number, expire_date, status, balance, created_at, updated_at
		FROM bank.cards ` + tail
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card := &models.Card{}
		if err := rows.Scan(&card.ID, &card.OwnerID, &card.Number, &card.ExpireDate,
			&card.Status, &card.Balance, &card.CreatedAt, &card.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// SearchCards returns one page of an owner's cards whose status matches
// the query, plus the total match count. Card numbers are encrypted at
// rest, so the search covers status only.
func (r *Repository) SearchCards(ctx context.Context, ownerID int64, query string, limit, offset int) ([]*models.Card, int64, error) {
	where := `WHERE owner_id = $1 AND ($2 = '' OR status ILIKE '%' || $2 || '%')`

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bank.cards `+where, ownerID, query).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	cards, err := r.findCards(ctx, where+` ORDER BY id LIMIT $3 OFFSET $4`, ownerID, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// SaveCard updates a card's status and balance.
func (r *Repository) SaveCard(ctx context.Context, card *models.Card) error {
	query := `
		UPDATE bank.cards
		SET status = $2, balance = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, card.ID, card.Status, card.Balance); err != nil {
		return fmt.Errorf("failed to save card: %w", err)
	}
	return nil
}

// DeleteCard removes a card row.
func (r *Repository) DeleteCard(ctx context.Context, card *models.Card) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM bank.cards WHERE id = $1`, card.ID); err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return nil
}

// UpdateBalances commits both sides of a transfer in one transaction:
// either both balances change or neither does.
//
// The service serializes transfers per card in-process; a multi-instance
// deployment would additionally want SELECT ... FOR UPDATE here.
func (r *Repository) UpdateBalances(ctx context.Context, from, to *models.Card) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE bank.cards SET balance = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, from.ID, from.Balance); err != nil {
		return fmt.Errorf("failed to update source balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, to.ID, to.Balance); err != nil {
		return fmt.Errorf("failed to update destination balance: %w", err)
	}

	return tx.Commit()
}

// MarkExpiredCards eagerly applies the one-way expiry transition to all
// overdue cards. The read paths still apply it lazily; this sweep just
// keeps listings current. Returns the number of cards transitioned.
func (r *Repository) MarkExpiredCards(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bank.cards
		 SET status = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE status <> $1 AND expire_date < CURRENT_DATE`,
		models.CardExpired)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired cards: %w", err)
	}
	return res.RowsAffected()
}

// CreateBlockRequest stores a new card block request.
func (r *Repository) CreateBlockRequest(ctx context.Context, req *models.CardBlockRequest) error {
	query := `
		INSERT INTO bank.card_block_requests (card_id, user_id, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		req.CardID, req.UserID, req.Status, req.CreatedAt).Scan(&req.ID)
	if err != nil {
		return fmt.Errorf("failed to create block request: %w", err)
	}
	return nil
}

// FindBlockRequestByID retrieves a block request by id.
func (r *Repository) FindBlockRequestByID(ctx context.Context, id int64) (*models.CardBlockRequest, error) {
	query := `
		SELECT id, card_id, user_id, admin_id, status, admin_comment, created_at, processed_at
		FROM bank.card_block_requests
		WHERE id = $1`
	req, err := scanBlockRequest(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrBlockRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find block request: %w", err)
	}
	return req, nil
}

// FindBlockRequestsByUser retrieves all block requests filed by a user.
func (r *Repository) FindBlockRequestsByUser(ctx context.Context, userID int64) ([]*models.CardBlockRequest, error) {
	return r.findBlockRequests(ctx, `WHERE user_id = $1 ORDER BY id`, userID)
}

// FindAllBlockRequests retrieves every block request.
func (r *Repository) FindAllBlockRequests(ctx context.Context) ([]*models.CardBlockRequest, error) {
	return r.findBlockRequests(ctx, `ORDER BY id`)
}

func (r *Repository) findBlockRequests(ctx context.Context, tail string, args ...interface{}) ([]*models.CardBlockRequest, error) {
	query := `
		SELECT id, card_id, user_id, admin_id, status, admin_comment, created_at, processed_at
		FROM bank.card_block_requests ` + tail
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query block requests: %w", err)
	}
	defer rows.Close()

	var reqs []*models.CardBlockRequest
	for rows.Next() {
		req, err := scanBlockRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan block request: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// SaveBlockRequest updates a block request's processing fields.
func (r *Repository) SaveBlockRequest(ctx context.Context, req *models.CardBlockRequest) error {
	query := `
		UPDATE bank.card_block_requests
		SET admin_id = $2, status = $3, admin_comment = $4, processed_at = $5
		WHERE id = $1`
	var adminID sql.NullInt64
	if req.AdminID != nil {
		adminID = sql.NullInt64{Int64: *req.AdminID, Valid: true}
	}
	var processedAt sql.NullTime
	if req.ProcessedAt != nil {
		processedAt = sql.NullTime{Time: *req.ProcessedAt, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query,
		req.ID, adminID, req.Status, nullable(req.AdminComment), processedAt); err != nil {
		return fmt.Errorf("failed to save block request: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBlockRequest(row rowScanner) (*models.CardBlockRequest, error) {
	req := &models.CardBlockRequest{}
	var adminID sql.NullInt64
	var comment sql.NullString
	var processedAt sql.NullTime
	if err := row.Scan(&req.ID, &req.CardID, &req.UserID, &adminID,
		&req.Status, &comment, &req.CreatedAt, &processedAt); err != nil {
		return nil, err
	}
	if adminID.Valid {
		req.AdminID = &adminID.Int64
	}
	req.AdminComment = comment.String
	if processedAt.Valid {
		req.ProcessedAt = &processedAt.Time
	}
	return req, nil
}

// CreateSession stores a login audit record.
func (r *Repository) CreateSession(ctx context.Context, session *models.UserSession) error {
	query := `
		INSERT INTO bank.user_sessions (id, user_id, ip_address, city, user_agent, start_time)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.IPAddress, session.City, session.UserAgent, session.StartTime); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// EndOpenSessions closes all sessions of a user that have no end time.
func (r *Repository) EndOpenSessions(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE bank.user_sessions SET end_time = CURRENT_TIMESTAMP WHERE user_id = $1 AND end_time IS NULL`,
		userID); err != nil {
		return fmt.Errorf("failed to end sessions: %w", err)
	}
	return nil
}

// EndStaleSessions closes open sessions older than the given age.
func (r *Repository) EndStaleSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bank.user_sessions SET end_time = CURRENT_TIMESTAMP WHERE end_time IS NULL AND start_time < $1`,
		time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to end stale sessions: %w", err)
	}
	return res.RowsAffected()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
