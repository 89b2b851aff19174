// AIインサイトサービスのエントリポイント。
// 取引履歴から支出傾向の要約を生成する（現時点ではプレースホルダー）。
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/nao1215/moneyhub/internal/insight"
)

func main() {
	// .envはローカル開発用の任意ファイル。存在しなくてもよい。
	_ = godotenv.Load()

	cfg := insight.LoadConfig()
	server := insight.NewServer(cfg)

	log.Printf("AIインサイトサービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("AIインサイトサービスの起動に失敗: %v", err)
	}
}
