// Package insight はAIインサイトサービスの内部実装を提供する。
//
// 取引履歴から支出傾向の要約やアドバイスを生成するためのサービス。
// 生成ロジックは未実装であり、現時点ではプレースホルダー応答のみを返す。
package insight
