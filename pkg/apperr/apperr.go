// Package apperr はサービス横断で使用するエラー分類を提供する。
//
// 各エラーはHTTPステータスコードとクライアント向けメッセージを持ち、
// ハンドラ層のエラー境界で一度だけJSONレスポンスに変換される。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はエラーの分類を表す。
type Kind int

const (
	// KindValidation はクライアントが修正可能な入力エラー（400）。
	KindValidation Kind = iota
	// KindUnauthenticated は認証情報の欠落・無効・期限切れ（401）。
	KindUnauthenticated
	// KindForbidden は有効な認証情報だが権限が不足している（403）。
	KindForbidden
	// KindNotFound は対象リソースが存在しない（404）。
	KindNotFound
	// KindConflict は一意性制約の違反（409）。
	KindConflict
	// KindInternal は予期しない内部エラー（500）。
	KindInternal
)

// Error は分類とステータスコードを持つアプリケーションエラー。
type Error struct {
	// Kind はエラーの分類。
	Kind Kind
	// Message はクライアントに返すメッセージ。
	Message string
	// Err はラップされた元のエラー。ログ用でありクライアントには返さない。
	Err error
}

// Error はerrorインタフェースを実装する。
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap はラップされた元のエラーを返す。
func (e *Error) Unwrap() error { return e.Err }

// StatusCode はエラー分類に対応するHTTPステータスコードを返す。
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Status はエラーエンベロープのstatusフィールド値を返す。
// 4xxは"fail"、5xxは"error"とする。
func (e *Error) Status() string {
	if e.StatusCode() >= http.StatusInternalServerError {
		return "error"
	}
	return "fail"
}

// Validation は入力エラー（400）を生成する。
func Validation(message string, err error) *Error {
	return &Error{Kind: KindValidation, Message: message, Err: err}
}

// Unauthenticated は認証エラー（401）を生成する。
func Unauthenticated(message string, err error) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message, Err: err}
}

// Forbidden は権限エラー（403）を生成する。
func Forbidden(message string, err error) *Error {
	return &Error{Kind: KindForbidden, Message: message, Err: err}
}

// NotFound は不存在エラー（404）を生成する。
func NotFound(message string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: message, Err: err}
}

// Conflict は一意性違反エラー（409）を生成する。
func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

// Internal は内部エラー（500）を生成する。元のエラーをラップして保持する。
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// From は任意のエラーを*Errorに変換する。
// 分類済みエラーはそのまま返し、未分類のエラーはKindInternalとして扱う。
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: KindInternal, Message: "something went wrong", Err: err}
}
