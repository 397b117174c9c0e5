package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// TaskRepo handles the scheduled task queue.
type TaskRepo struct {
	db *sql.DB
}

// NewTaskRepo creates a TaskRepo.
func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// Schedule inserts a task.
func (r *TaskRepo) Schedule(ctx context.Context, t *model.ScheduledTask) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO scheduled_tasks (task_id, task, parameter, scheduled_time, recipient_id, sender_id, guild_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		t.TaskID, t.Task, t.Parameter, t.ScheduledTime, t.RecipientID, t.SenderID, t.GuildID,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("schedule task: %w", err)
	}
	return nil
}

// ListPending returns every unclaimed task, soonest first. Used at worker
// startup to re-arm the Redis timers for resolutions scheduled before a
// restart.
func (r *TaskRepo) ListPending(ctx context.Context) ([]model.ScheduledTask, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, task_id, task, parameter, scheduled_time, recipient_id, sender_id, guild_id
		 FROM scheduled_tasks
		 ORDER BY scheduled_time, id`)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.ScheduledTask
	for rows.Next() {
		var t model.ScheduledTask
		if err := rows.Scan(&t.ID, &t.TaskID, &t.Task, &t.Parameter, &t.ScheduledTime, &t.RecipientID, &t.SenderID, &t.GuildID); err != nil {
			return nil, fmt.Errorf("scan pending task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ClaimNext atomically claims and removes the earliest due task. The
// skip-locked select lets multiple workers poll the queue without ever
// handing the same task to two of them. Returns (nil, nil) when nothing
// is due.
func (r *TaskRepo) ClaimNext(ctx context.Context) (*model.ScheduledTask, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback()

	var t model.ScheduledTask
	err = tx.QueryRowContext(ctx,
		`SELECT id, task_id, task, parameter, scheduled_time, recipient_id, sender_id, guild_id
		 FROM scheduled_tasks
		 WHERE scheduled_time <= now()
		 ORDER BY scheduled_time, id
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED`,
	).Scan(&t.ID, &t.TaskID, &t.Task, &t.Parameter, &t.ScheduledTime, &t.RecipientID, &t.SenderID, &t.GuildID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = $1`, t.ID); err != nil {
		return nil, fmt.Errorf("delete claimed task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return &t, nil
}
