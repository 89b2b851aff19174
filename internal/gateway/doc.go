// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線として
// 機能する。JWTの検証とCORS・セキュリティヘッダーの付与を行い、
// パスに応じてユーザー・SMSパーサー・インサイトの各内部サービスに
// リクエストを転送する。ゲートウェイ自身は状態を持たない。
package gateway
