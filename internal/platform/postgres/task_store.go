package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

const taskColumns = `
	t.id, t.owner_user_id, u.username, t.title, t.description, t.status, t.priority,
	t.due_date, t.tags, t.reminder_sent_at, t.created_at, t.updated_at`

const taskFrom = `
	FROM tasks t
	JOIN users u ON u.id = t.owner_user_id`

// sortColumns maps the accepted TaskFilter.SortBy values to SQL expressions.
var sortColumns = map[string]string{
	store.SortByCreatedAt: "t.created_at",
	store.SortByDueDate:   "t.due_date",
	store.SortByTitle:     "t.title",
	store.SortByPriority:  "CASE t.priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END",
}

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	tags, err := encodeTags(task.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (owner_user_id, title, description, status, priority,
			due_date, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
		RETURNING id
	`

	err = s.db.QueryRowContext(ctx, query,
		task.OwnerUserID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		nullTime(task.DueDate),
		tags,
		task.CreatedAt.UTC(),
		task.UpdatedAt.UTC(),
	).Scan(&task.ID)
	if err != nil {
		s.logger.Error("failed to create task",
			slog.Int64("owner_user_id", task.OwnerUserID),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	s.logger.Debug("task created", slog.Int64("task_id", task.ID))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + taskFrom + ` WHERE t.id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		s.logger.Error("failed to get task",
			slog.Int64("task_id", id),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return task, nil
}

// Refresh implements store.TaskStore.Refresh
func (s *PostgresTaskStore) Refresh(ctx context.Context, taskID int64) (*domain.Task, error) {
	return s.GetByID(ctx, taskID)
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	tags, err := encodeTags(task.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4,
			due_date = $5, tags = $6::jsonb, updated_at = $7
		WHERE id = $8
	`

	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		nullTime(task.DueDate),
		tags,
		task.UpdatedAt.UTC(),
		task.ID,
	)
	if err != nil {
		s.logger.Error("failed to update task",
			slog.Int64("task_id", task.ID),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		s.logger.Error("failed to delete task",
			slog.Int64("task_id", id),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]domain.Task, int, error) {
	where, args := buildTaskWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM tasks t` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		s.logger.Error("failed to count tasks", slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}

	sortExpr, ok := sortColumns[filter.SortBy]
	if !ok {
		sortExpr = sortColumns[store.SortByCreatedAt]
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY %s %s NULLS LAST, t.id ASC`,
		taskColumns, taskFrom, where, sortExpr, direction)

	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	tasks, err := s.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// FindDueBetween implements store.TaskStore.FindDueBetween
func (s *PostgresTaskStore) FindDueBetween(
	ctx context.Context,
	from, to, notRemindedSince time.Time,
) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + taskFrom + `
		WHERE t.due_date IS NOT NULL
			AND t.due_date >= $1
			AND t.due_date <= $2
			AND (t.reminder_sent_at IS NULL OR t.reminder_sent_at < $3)
		ORDER BY t.due_date ASC, t.id ASC`

	tasks, err := s.queryTasks(ctx, query, from.UTC(), to.UTC(), notRemindedSince.UTC())
	if err != nil {
		return nil, store.NewStoreError("task", "find_due", "due-date range query", err)
	}
	return tasks, nil
}

// ConditionallyMarkReminded implements store.TaskStore.ConditionallyMarkReminded
//
// When the store is bound to a *sql.DB the update runs in its own
// transaction; a store returned by WithTx uses the caller's transaction.
func (s *PostgresTaskStore) ConditionallyMarkReminded(
	ctx context.Context,
	taskID int64,
	now, notRemindedSince time.Time,
) (int64, error) {
	var rows int64
	mark := func(ctx context.Context, db store.DBTX) error {
		result, err := db.ExecContext(ctx, `
			UPDATE tasks
			SET reminder_sent_at = $1
			WHERE id = $2
				AND (reminder_sent_at IS NULL OR reminder_sent_at < $3)
		`, now.UTC(), taskID, notRemindedSince.UTC())
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	}

	var err error
	if db, ok := s.db.(*sql.DB); ok {
		err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			return mark(ctx, tx)
		})
	} else {
		err = mark(ctx, s.db)
	}
	if err != nil {
		return 0, store.NewStoreError("task", "mark_reminded",
			fmt.Sprintf("conditional update of task %d", taskID), MapError(err))
	}

	return rows, nil
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to query tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			s.logger.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		s.logger.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return tasks, nil
}

// buildTaskWhere renders filter as a WHERE clause with positional arguments.
// Pagination and ordering are not part of the clause.
func buildTaskWhere(filter store.TaskFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.Status != "" {
		add("t.status = ?", filter.Status)
	}
	if filter.Priority != "" {
		add("t.priority = ?", filter.Priority)
	}
	if filter.OwnerUserID > 0 {
		add("t.owner_user_id = ?", filter.OwnerUserID)
	}
	if filter.Tag != "" {
		tag, _ := json.Marshal([]string{filter.Tag})
		add("t.tags @> ?::jsonb", string(tag))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("(t.title ILIKE ? OR t.description ILIKE ?)", "%"+escapeLike(search)+"%")
	}
	if filter.DueAfter != nil {
		add("t.due_date >= ?", filter.DueAfter.UTC())
	}
	if filter.DueBefore != nil {
		add("t.due_date <= ?", filter.DueBefore.UTC())
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task           domain.Task
		dueDate        sql.NullTime
		reminderSentAt sql.NullTime
		tags           []byte
	)

	err := row.Scan(
		&task.ID,
		&task.OwnerUserID,
		&task.OwnerUsername,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&dueDate,
		&tags,
		&reminderSentAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.DueDate = timePtr(dueDate)
	task.ReminderSentAt = timePtr(reminderSentAt)
	task.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &task.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode task tags: %w", err)
		}
	}

	return &task, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode task tags: %w", err)
	}
	return string(b), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
