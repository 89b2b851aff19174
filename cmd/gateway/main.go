// API Gatewayサービスのエントリポイント。
// JWT検証とCORSを担当し、パスに応じて内部サービスにリクエストを転送する。
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線となる。
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/nao1215/moneyhub/internal/gateway"
)

func main() {
	// .envはローカル開発用の任意ファイル。存在しなくてもよい。
	_ = godotenv.Load()

	cfg := gateway.LoadConfig()
	server := gateway.NewServer(cfg)

	log.Printf("Gatewayサービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("Gatewayサービスの起動に失敗: %v", err)
	}
}
