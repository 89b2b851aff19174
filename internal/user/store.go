package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ストア層のセンチネルエラー。ハンドラ層でapperrの分類に変換される。
var (
	// ErrUserNotFound は対象ユーザーが存在しない（または論理削除済み）ことを表す。
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail はメールアドレスが未削除ユーザーに使用済みであることを表す。
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrDuplicatePhone は電話番号が未削除ユーザーに使用済みであることを表す。
	ErrDuplicatePhone = errors.New("phone number already in use")
)

// Store はユーザーディレクトリのSQLiteバックエンド。
// 一貫性はSQLiteのトランザクション保証に委譲し、独自のロックは持たない。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewStore は新しいStoreを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// userColumns はSELECTで取得するカラムの一覧。scanUserと同期すること。
const userColumns = `id, email, phone, password_hash, first_name, last_name, display_name,
	role, is_active, is_verified, last_login_at, created_at, updated_at, deleted_at`

// scanUser は1行をUserレコードに変換する。
func scanUser(row interface{ Scan(dest ...any) error }) (*User, error) {
	var u User
	var phone sql.NullString
	var lastLoginAt, deletedAt sql.NullTime

	err := row.Scan(
		&u.ID,
		&u.Email,
		&phone,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.DisplayName,
		&u.Role,
		&u.IsActive,
		&u.IsVerified,
		&lastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if phone.Valid {
		u.Phone = &phone.String
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		u.LastLoginAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		u.DeletedAt = &t
	}
	return &u, nil
}

// nullableString は*stringをsql.NullStringに変換する。
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableTime は*time.Timeをsql.NullTimeに変換する。
func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Create は新しいユーザーを挿入する。
// メールアドレス・電話番号が未削除ユーザーに使用済みの場合は
// ErrDuplicateEmail / ErrDuplicatePhoneを返す。
func (s *Store) Create(ctx context.Context, u *User) error {
	if err := s.checkUniqueness(ctx, u.Email, u.Phone, ""); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, phone, password_hash, first_name, last_name, display_name,
			role, is_active, is_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Email,
		nullableString(u.Phone),
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.DisplayName,
		u.Role,
		u.IsActive,
		u.IsVerified,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		// 部分一意インデックスは同時挿入の競合に対する最終防衛線
		if dup := uniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("ユーザーの挿入に失敗: %w", err)
	}
	return nil
}

// GetByID は指定されたIDのユーザーを取得する。
// 論理削除済みユーザーはincludeDeleted=trueの場合のみ取得できる。
// 存在しない場合はErrUserNotFoundを返す。
func (s *Store) GetByID(ctx context.Context, id string, includeDeleted bool) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return u, nil
}

// GetByEmail は指定されたメールアドレスのユーザーを取得する。
// メールアドレスは正規化してから比較する。
func (s *Store) GetByEmail(ctx context.Context, email string, includeDeleted bool) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	u, err := scanUser(s.db.QueryRowContext(ctx, query, normalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return u, nil
}

// Update はユーザーの更新可能フィールドを保存する。
// メールアドレス・電話番号の変更時は一意性を再検証する。
// 対象が存在しない（または論理削除済み）場合はErrUserNotFoundを返す。
func (s *Store) Update(ctx context.Context, u *User) error {
	if err := s.checkUniqueness(ctx, u.Email, u.Phone, u.ID); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, phone = ?, password_hash = ?, first_name = ?, last_name = ?,
			display_name = ?, role = ?, is_active = ?, is_verified = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		u.Email,
		nullableString(u.Phone),
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.DisplayName,
		u.Role,
		u.IsActive,
		u.IsVerified,
		time.Now().UTC(),
		u.ID,
	)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("ユーザーの更新に失敗: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin は最終ログイン日時を更新する。
func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		at, at, id)
	if err != nil {
		return fmt.Errorf("最終ログイン日時の更新に失敗: %w", err)
	}
	return nil
}

// SoftDelete はユーザーを論理削除する。deleted_atを設定しis_activeをfalseにする。
// 既に論理削除済みのユーザーは存在しないものとして扱い、ErrUserNotFoundを返す。
func (s *Store) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET deleted_at = ?, is_active = 0, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		at, at, id)
	if err != nil {
		return fmt.Errorf("ユーザーの論理削除に失敗: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// HardDelete はユーザーを物理削除する。破壊的で元に戻せない。
// 論理削除済みのユーザーも削除対象に含める。
func (s *Store) HardDelete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("ユーザーの物理削除に失敗: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除行数の取得に失敗: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListFilter はユーザー一覧取得の検索条件。
type ListFilter struct {
	// Page はページ番号（1始まり）。
	Page int
	// Limit は1ページあたりの件数。
	Limit int
	// Search はメールアドレス・氏名・表示名に対する部分一致検索語。
	Search string
	// SortBy はソート対象カラム。許可リストにないカラムはcreated_atになる。
	SortBy string
	// SortOrder はソート順（asc / desc）。
	SortOrder string
	// IsActive は有効状態での絞り込み。nilの場合は絞り込まない。
	IsActive *bool
	// IsVerified は確認済み状態での絞り込み。nilの場合は絞り込まない。
	IsVerified *bool
}

// sortableColumns はListでソート可能なカラムの許可リスト。
var sortableColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"email":       "email",
	"firstName":   "first_name",
	"lastName":    "last_name",
	"name":        "display_name",
	"lastLoginAt": "last_login_at",
}

// List は条件に一致する未削除ユーザーの一覧と総件数を返す。
// 検索は大文字小文字を区別しない部分一致で行う。
func (s *Store) List(ctx context.Context, f ListFilter) ([]*User, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}

	where := []string{"deleted_at IS NULL"}
	args := []any{}

	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		where = append(where,
			"(LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(display_name) LIKE ?)")
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if f.IsActive != nil {
		where = append(where, "is_active = ?")
		args = append(args, *f.IsActive)
	}
	if f.IsVerified != nil {
		where = append(where, "is_verified = ?")
		args = append(args, *f.IsVerified)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM users WHERE " + whereClause
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ユーザー件数の取得に失敗: %w", err)
	}

	sortColumn, ok := sortableColumns[f.SortBy]
	if !ok {
		sortColumn = "created_at"
	}
	sortOrder := "ASC"
	if strings.EqualFold(f.SortOrder, "desc") {
		sortOrder = "DESC"
	}

	query := fmt.Sprintf(
		"SELECT %s FROM users WHERE %s ORDER BY %s %s LIMIT ? OFFSET ?",
		userColumns, whereClause, sortColumn, sortOrder)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ユーザー一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := make([]*User, 0, f.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ユーザー行の読み取りに失敗: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ユーザー一覧の走査に失敗: %w", err)
	}

	return users, total, nil
}

// checkUniqueness はメールアドレスと電話番号が未削除ユーザーに
// 使用されていないことを確認する。excludeIDは更新対象自身を除外するためのID。
func (s *Store) checkUniqueness(ctx context.Context, email string, phone *string, excludeID string) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email = ? AND deleted_at IS NULL AND id != ?",
		email, excludeID).Scan(&count)
	if err != nil {
		return fmt.Errorf("メールアドレスの一意性確認に失敗: %w", err)
	}
	if count > 0 {
		return ErrDuplicateEmail
	}

	if phone != nil && *phone != "" {
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM users WHERE phone = ? AND deleted_at IS NULL AND id != ?",
			*phone, excludeID).Scan(&count)
		if err != nil {
			return fmt.Errorf("電話番号の一意性確認に失敗: %w", err)
		}
		if count > 0 {
			return ErrDuplicatePhone
		}
	}
	return nil
}

// uniqueViolation はSQLiteの一意制約違反を対応する重複エラーに分類する。
// 違反した列・インデックス名から電話番号かメールアドレスかを判定し、
// 一意制約違反でない場合はnilを返す。
func uniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	if strings.Contains(msg, "users.phone") || strings.Contains(msg, "idx_users_phone_active") {
		return ErrDuplicatePhone
	}
	return ErrDuplicateEmail
}
