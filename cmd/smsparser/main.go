// SMSパーサーサービスのエントリポイント。
// 銀行やカード会社からのSMS通知を取引データに変換する（現時点ではプレースホルダー）。
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/nao1215/moneyhub/internal/smsparser"
)

func main() {
	// .envはローカル開発用の任意ファイル。存在しなくてもよい。
	_ = godotenv.Load()

	cfg := smsparser.LoadConfig()
	server := smsparser.NewServer(cfg)

	log.Printf("SMSパーサーサービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("SMSパーサーサービスの起動に失敗: %v", err)
	}
}
