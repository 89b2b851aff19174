// Package user はユーザー管理サービスの内部実装を提供する。
//
// ユーザーの登録・ログイン・プロフィール管理・一覧取得・論理削除を担当する。
// 認証情報（bcryptハッシュ）とユーザーディレクトリを所有する唯一のサービスであり、
// Bearerトークンの検証とディレクトリ照会を組み合わせた完全な認証を行う。
package user
