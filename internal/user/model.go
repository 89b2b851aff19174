package user

import (
	"strings"
	"time"
)

// ロール定数。users.roleカラムのCHECK制約と同期すること。
const (
	// RoleUser は一般ユーザー。
	RoleUser = "user"
	// RoleAdmin は管理者。ユーザー一覧・他ユーザーの管理操作が可能。
	RoleAdmin = "admin"
	// RoleModerator はモデレータ。
	RoleModerator = "moderator"
)

// User はユーザーディレクトリのレコードを表す。
// PasswordHashはAPI境界を越える前に必ず除去される（userResponse参照）。
type User struct {
	// ID はユーザーの一意識別子（UUID）。
	ID string
	// Email はメールアドレス。小文字に正規化され、未削除ユーザー間で一意。
	Email string
	// Phone は電話番号。任意項目で、設定時は未削除ユーザー間で一意。
	Phone *string
	// PasswordHash はbcryptでハッシュ化されたパスワード。
	PasswordHash string
	// FirstName は名。
	FirstName string
	// LastName は姓。
	LastName string
	// DisplayName は表示名。FirstName/LastNameから導出される。
	DisplayName string
	// Role はユーザーのロール（user / admin / moderator）。
	Role string
	// IsActive はアカウントが有効かどうか。
	IsActive bool
	// IsVerified はメールアドレスが確認済みかどうか。
	IsVerified bool
	// LastLoginAt は最終ログイン日時。未ログインの場合はnil。
	LastLoginAt *time.Time
	// CreatedAt は作成日時。
	CreatedAt time.Time
	// UpdatedAt は更新日時。
	UpdatedAt time.Time
	// DeletedAt は論理削除日時。未削除の場合はnil。
	// 設定されている場合、IsActiveは必ずfalseになる。
	DeletedAt *time.Time
}

// userResponse はユーザーのJSONレスポンス構造。
// パスワードハッシュは決して含めない。
type userResponse struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// Phone は電話番号。未設定の場合はnull。
	Phone *string `json:"phone"`
	// FirstName は名。
	FirstName string `json:"firstName"`
	// LastName は姓。
	LastName string `json:"lastName"`
	// Name は表示名。
	Name string `json:"name"`
	// Role はユーザーのロール。
	Role string `json:"role"`
	// IsActive はアカウントが有効かどうか。
	IsActive bool `json:"isActive"`
	// IsVerified はメールアドレスが確認済みかどうか。
	IsVerified bool `json:"isVerified"`
	// LastLoginAt は最終ログイン日時。
	LastLoginAt *time.Time `json:"lastLoginAt"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time `json:"updatedAt"`
}

// toUserResponse はUserレコードをJSONレスポンスに変換する。
func toUserResponse(u *User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Phone:       u.Phone,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Name:        u.DisplayName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		IsVerified:  u.IsVerified,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// normalizeEmail はメールアドレスを小文字・前後空白なしに正規化する。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// displayName はFirstName/LastNameから表示名を導出する。
func displayName(firstName, lastName string) string {
	return strings.TrimSpace(firstName + " " + lastName)
}
