// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// JWTトークンの生成・検証、リクエストログ、パニックリカバリ、
// CORS・セキュリティヘッダー、エラー境界など、
// 全サービスで共通して使用するミドルウェアを含む。
package middleware
