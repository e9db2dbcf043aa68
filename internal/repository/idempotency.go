package repository

import (
	"context"
)

type IdempotencyKeyRow struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
}

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKeyRow, error) {
	var row IdempotencyKeyRow
	err := q.db.QueryRow(ctx,
		`SELECT idempotency_key, request_hash, method, path, COALESCE(response_status, 0), COALESCE(response_body, ''::bytea), COALESCE(content_type, ''), in_progress
		 FROM idempotency_keys WHERE idempotency_key = $1`, key).
		Scan(&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path, &row.ResponseStatus,
			&row.ResponseBody, &row.ContentType, &row.InProgress)
	return row, err
}

type ReserveIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
}

// ReserveIdempotencyKey claims a key for in-flight processing. Returns
// pgx.ErrNoRows via the RETURNING clause when another request holds it.
func (q *Queries) ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (string, error) {
	var key string
	err := q.db.QueryRow(ctx,
		`INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress, created_at)
		 VALUES ($1, $2, $3, $4, TRUE, NOW())
		 ON CONFLICT (idempotency_key) DO NOTHING
		 RETURNING idempotency_key`,
		arg.IdempotencyKey, arg.RequestHash, arg.Method, arg.Path).Scan(&key)
	return key, err
}

type FinalizeIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
}

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (IdempotencyKeyRow, error) {
	var row IdempotencyKeyRow
	err := q.db.QueryRow(ctx,
		`UPDATE idempotency_keys
		 SET response_status = $1, response_body = $2, content_type = $3, in_progress = FALSE, completed_at = NOW()
		 WHERE idempotency_key = $4 AND request_hash = $5
		 RETURNING idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress`,
		arg.ResponseStatus, arg.ResponseBody, arg.ContentType, arg.IdempotencyKey, arg.RequestHash).
		Scan(&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path, &row.ResponseStatus,
			&row.ResponseBody, &row.ContentType, &row.InProgress)
	return row, err
}
