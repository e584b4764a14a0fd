package repository

import (
	"context"
	"database/sql"
	"time"

	"phishdeck/internal/db"
	"phishdeck/internal/domain"
)

// CampaignRepo persists campaigns, their targets, and tracked events.
type CampaignRepo struct {
	q db.Querier
}

// NewCampaignRepo creates a CampaignRepo over one unit of work.
func NewCampaignRepo(q db.Querier) *CampaignRepo {
	return &CampaignRepo{q: q}
}

const campaignColumns = `id, tenant_id, name, subject, lure_url, status, scheduled_at, launched_at, created_at`

// Create inserts a new draft campaign.
func (r *CampaignRepo) Create(ctx context.Context, tenantID int64, req domain.CreateCampaignRequest) (*domain.Campaign, error) {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO campaigns (tenant_id, name, subject, lure_url, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tenantID, req.Name, req.Subject, req.LureURL, domain.CampaignDraft, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Campaign{
		ID:        id,
		TenantID:  tenantID,
		Name:      req.Name,
		Subject:   req.Subject,
		LureURL:   req.LureURL,
		Status:    domain.CampaignDraft,
		CreatedAt: now,
	}, nil
}

// GetByID returns one campaign visible under the predicate.
func (r *CampaignRepo) GetByID(ctx context.Context, id int64, pred domain.Predicate) (*domain.Campaign, error) {
	query, args := withPredicate(
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`,
		[]interface{}{id}, pred)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound("campaign %d not found", id)
	}
	return scanCampaign(rows)
}

// List returns campaigns visible under the predicate, paginated.
func (r *CampaignRepo) List(ctx context.Context, pred domain.Predicate, page domain.PageRequest) ([]domain.Campaign, int64, error) {
	countQuery, countArgs := withPredicate(
		`SELECT COUNT(*) FROM campaigns WHERE 1 = 1`, nil, pred)
	total, err := countRows(ctx, r.q, countQuery, countArgs)
	if err != nil {
		return nil, 0, err
	}

	query, args := withPredicate(
		`SELECT `+campaignColumns+` FROM campaigns WHERE 1 = 1`, nil, pred)
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, total, rows.Err()
}

// ListDue returns scheduled campaigns whose launch time has passed. Run by
// the scheduler under the system scope.
func (r *CampaignRepo) ListDue(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE status = ? AND scheduled_at <= ?`,
		domain.CampaignScheduled, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// SetStatus transitions a campaign's lifecycle state, stamping timestamps
// for the transitions that carry one.
func (r *CampaignRepo) SetStatus(ctx context.Context, id int64, status string, scheduledAt, launchedAt *time.Time) error {
	query := `UPDATE campaigns SET status = ?`
	args := []interface{}{status}
	if scheduledAt != nil {
		query += `, scheduled_at = ?`
		args = append(args, scheduledAt.UTC())
	}
	if launchedAt != nil {
		query += `, launched_at = ?`
		args = append(args, launchedAt.UTC())
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("campaign %d not found", id)
	}
	return nil
}

// Delete removes a campaign with its targets and events.
func (r *CampaignRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM campaign_events WHERE campaign_id = ?`, id); err != nil {
		return mapDBError(err)
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM campaign_targets WHERE campaign_id = ?`, id); err != nil {
		return mapDBError(err)
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("campaign %d not found", id)
	}
	return nil
}

// AddTarget adds one recipient to a campaign.
func (r *CampaignRepo) AddTarget(ctx context.Context, t *domain.CampaignTarget) (*domain.CampaignTarget, error) {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO campaign_targets (tenant_id, campaign_id, email, token, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.TenantID, t.CampaignID, t.Email, t.Token, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *t
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

// ListTargets returns a campaign's targets, filtered by the predicate.
func (r *CampaignRepo) ListTargets(ctx context.Context, campaignID int64, pred domain.Predicate) ([]domain.CampaignTarget, error) {
	query, args := withPredicate(
		`SELECT id, tenant_id, campaign_id, email, token, created_at
		 FROM campaign_targets WHERE campaign_id = ?`,
		[]interface{}{campaignID}, pred)
	query += ` ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []domain.CampaignTarget
	for rows.Next() {
		var t domain.CampaignTarget
		if err := rows.Scan(&t.ID, &t.TenantID, &t.CampaignID, &t.Email, &t.Token, &t.CreatedAt); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// GetTargetByToken resolves a tracking token to its target, unfiltered.
// Tracking endpoints have no principal; callers run it under the system
// scope and the token's unguessability is the access control.
func (r *CampaignRepo) GetTargetByToken(ctx context.Context, token string) (*domain.CampaignTarget, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, tenant_id, campaign_id, email, token, created_at
		 FROM campaign_targets WHERE token = ?`, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound("unknown tracking token")
	}
	var t domain.CampaignTarget
	if err := rows.Scan(&t.ID, &t.TenantID, &t.CampaignID, &t.Email, &t.Token, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertEvent records one tracked interaction.
func (r *CampaignRepo) InsertEvent(ctx context.Context, e *domain.CampaignEvent) (*domain.CampaignEvent, error) {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO campaign_events (tenant_id, campaign_id, target_id, type, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.TenantID, e.CampaignID, e.TargetID, e.Type, e.UserAgent, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *e
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

// Stats computes the tracking funnel for one campaign, filtered by the
// predicate on both tables.
func (r *CampaignRepo) Stats(ctx context.Context, campaignID int64, pred domain.Predicate) (*domain.CampaignStats, error) {
	stats := &domain.CampaignStats{CampaignID: campaignID}

	targetQuery, targetArgs := withPredicate(
		`SELECT COUNT(*) FROM campaign_targets WHERE campaign_id = ?`,
		[]interface{}{campaignID}, pred)
	targets, err := countRows(ctx, r.q, targetQuery, targetArgs)
	if err != nil {
		return nil, err
	}
	stats.Targets = targets

	query, args := withPredicate(
		`SELECT type, COUNT(DISTINCT target_id) FROM campaign_events WHERE campaign_id = ?`,
		[]interface{}{campaignID}, pred)
	query += ` GROUP BY type`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventType string
			n         int64
		)
		if err := rows.Scan(&eventType, &n); err != nil {
			return nil, err
		}
		switch eventType {
		case domain.EventSent:
			stats.Sent = n
		case domain.EventOpened:
			stats.Opened = n
		case domain.EventClicked:
			stats.Clicked = n
		case domain.EventReported:
			stats.Reported = n
		}
	}
	return stats, rows.Err()
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	var (
		c           domain.Campaign
		scheduledAt sql.NullTime
		launchedAt  sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Subject, &c.LureURL, &c.Status, &scheduledAt, &launchedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ScheduledAt = timePtr(scheduledAt)
	c.LaunchedAt = timePtr(launchedAt)
	return &c, nil
}
