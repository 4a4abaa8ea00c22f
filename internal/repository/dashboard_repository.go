package repository

import (
	"context"

	"estate_crm/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DashboardRepository struct {
	db *pgxpool.Pool
}

func NewDashboardRepository(db *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Counts fills the aggregate counters of the supervisor dashboard
func (r *DashboardRepository) Counts(ctx context.Context, d *entities.SupervisorDashboard) error {
	d.RequestsByStatus = map[string]int{}
	rows, err := r.db.Query(ctx, "SELECT status, COUNT(*) FROM requests GROUP BY status")
	if err != nil {
		return err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return err
		}
		d.RequestsByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	return r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM requests WHERE assigned_broker_id IS NULL AND status NOT IN ('closed_won', 'closed_lost')),
			(SELECT COUNT(*) FROM broker_applications WHERE status IN ('pending', 'interviewing')),
			(SELECT COUNT(*) FROM users WHERE role = 'broker' AND status = 'active'),
			(SELECT COUNT(*) FROM users WHERE role = 'broker' AND status = 'blocked'),
			(SELECT COUNT(*) FROM customers)`,
	).Scan(&d.UnassignedRequests, &d.PendingApplications, &d.ActiveBrokers, &d.BlockedBrokers, &d.Customers)
}
