package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"inkwell/internal/doctree"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/repositories"
)

// PostgresPostRepository implements the PostRepository interface
type PostgresPostRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewPostRepository creates a new post repository
func NewPostRepository(config *RepositoryConfig) repositories.PostRepository {
	return &PostgresPostRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const postColumns = "id, user_id, title, content_json, status, created_at, updated_at"

// Create inserts a post. The database assigns the id.
func (r *PostgresPostRepository) Create(ctx context.Context, post *models.Post) error {
	body, err := json.Marshal(post.Body)
	if err != nil {
		return fmt.Errorf("encode post body: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, content_json, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, r.tables.Posts)

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		post.UserID,
		post.Title,
		body,
		post.Status,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return translatePostError(err, "create", post.ID)
	}

	return nil
}

// GetByID retrieves a post owned by userID
func (r *PostgresPostRepository) GetByID(ctx context.Context, id, userID string) (*models.Post, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, postColumns, r.tables.Posts)

	executor := GetExecutor(ctx, r.pool)
	post, err := scanPost(executor.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, translatePostError(err, "get", id)
	}

	return post, nil
}

// Update writes the mutable columns of an existing post
func (r *PostgresPostRepository) Update(ctx context.Context, post *models.Post) error {
	body, err := json.Marshal(post.Body)
	if err != nil {
		return fmt.Errorf("encode post body: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, content_json = $2, status = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6
	`, r.tables.Posts)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		post.Title,
		body,
		post.Status,
		post.UpdatedAt,
		post.ID,
		post.UserID,
	)
	if err != nil {
		return translatePostError(err, "update", post.ID)
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("post %s not found", post.ID)}
	}

	return nil
}

// ListByUser lists a user's posts, most recently updated first
func (r *PostgresPostRepository) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, postColumns, r.tables.Posts)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var post models.Post
	var body []byte
	err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.Title,
		&body,
		&post.Status,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tree, err := doctree.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode body of post %s: %w", post.ID, err)
	}
	post.Body = tree
	return &post, nil
}
