// Package smsparser はSMSパーサーサービスの内部実装を提供する。
//
// 銀行やカード会社からのSMS通知を取引データに変換するためのサービス。
// 解析ロジックは未実装であり、現時点ではプレースホルダー応答のみを返す。
package smsparser
